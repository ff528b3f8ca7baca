package analysis

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/datastore"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/pipeline"
	"github.com/tphakala/platewatch/internal/plate"
	"github.com/tphakala/platewatch/internal/search"
)

// Output formats of the lookup command.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// lookupResult is the JSON form of a lookup.
type lookupResult struct {
	Plate      string                   `json:"plate"`
	Registered bool                     `json:"registered"`
	Vehicle    *datastore.VehicleRecord `json:"vehicle,omitempty"`
}

// LookupPlate searches the registry for settings.Input.Plate and prints
// the owner. An unregistered plate is reported, not returned as an error.
func LookupPlate(settings *conf.Settings) error {
	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer closeStore(store)

	return lookupPlate(context.Background(), search.New(store, 0, nil),
		settings.Input.Plate, settings.Input.Format, os.Stdout)
}

func lookupPlate(ctx context.Context, svc *search.Service, raw, format string, w io.Writer) error {
	if format != "" && format != FormatText && format != FormatJSON {
		return errors.Newf("unknown output format %q", format).
			Component("analysis").
			Category(errors.CategoryValidation).
			Context("supported", FormatText+", "+FormatJSON).
			Build()
	}

	normalized := plate.Normalize(raw)
	if normalized == "" {
		return errors.Newf("plate %q is empty after normalization", raw).
			Component("analysis").
			Category(errors.CategoryValidation).
			Build()
	}

	record, err := svc.Lookup(ctx, normalized)
	if err != nil && !errors.IsNotFound(err) {
		return err
	}

	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(lookupResult{
			Plate:      normalized,
			Registered: record != nil,
			Vehicle:    record,
		})
	}

	pipeline.PrintReport(w, &pipeline.Recognition{
		Plate:      normalized,
		Record:     record,
		Registered: record != nil,
	})
	return nil
}
