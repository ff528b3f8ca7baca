package pipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/platewatch/internal/datastore"
	"github.com/tphakala/platewatch/internal/errors"
)

func TestPrintReport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rec      *Recognition
		contains []string
		excludes []string
	}{
		{
			name: "registered",
			rec: &Recognition{
				Plate:      "ABC123",
				Registered: true,
				Record: &datastore.VehicleRecord{
					Plate: "ABC123", Brand: "Toyota", Model: "Corolla", Year: 2020,
					OwnerName: "Juan Perez", OwnerPhone: "555-0101", OwnerEmail: "juan@example.com",
				},
			},
			contains: []string{"Placa detectada: ABC123", "Propietario: Juan Perez", "Año:         2020"},
			excludes: []string{"no se encontró"},
		},
		{
			name:     "unregistered",
			rec:      &Recognition{Plate: "ZZZ999"},
			contains: []string{"Placa detectada: ZZZ999", "no se encontró"},
			excludes: []string{"Propietario"},
		},
		{
			name:     "lookup failed",
			rec:      &Recognition{Plate: "ABC123", LookupErr: errors.NewStd("connection refused")},
			contains: []string{"Error al consultar"},
			excludes: []string{"no se encontró"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			PrintReport(&buf, tt.rec)
			for _, s := range tt.contains {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}
