package pipeline

import (
	"fmt"
	"io"
)

// PrintReport writes the console summary for a newly read plate.
func PrintReport(w io.Writer, rec *Recognition) {
	fmt.Fprintf(w, "\nPlaca detectada: %s\n", rec.Plate)
	if rec.LookupErr != nil {
		fmt.Fprintln(w, "Error al consultar la base de datos.")
		return
	}
	if !rec.Registered || rec.Record == nil {
		fmt.Fprintln(w, "La placa no se encontró en la base de datos.")
		return
	}

	r := rec.Record
	fmt.Fprintln(w, "Información del propietario:")
	fmt.Fprintf(w, "  Placa:       %s\n", r.Plate)
	fmt.Fprintf(w, "  Marca:       %s\n", r.Brand)
	fmt.Fprintf(w, "  Modelo:      %s\n", r.Model)
	fmt.Fprintf(w, "  Año:         %d\n", r.Year)
	fmt.Fprintf(w, "  Propietario: %s\n", r.OwnerName)
	fmt.Fprintf(w, "  Teléfono:    %s\n", r.OwnerPhone)
	fmt.Fprintf(w, "  Email:       %s\n", r.OwnerEmail)
}
