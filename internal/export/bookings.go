// Package export renders admin reports as spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/charismamove/apiserver/types"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	bookingsSheet = "Réservations"
)

var bookingHeaders = []string{"ID", "Utilisateur", "Départ", "Arrivée", "Date", "Heure", "Places", "Prix", "Statut", "Créée le"}

// Filename names a bookings export produced at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("bookings_export_%s.xlsx", t.UTC().Format("2006-01-02_15-04-05"))
}

// Bookings writes bookings to a single-sheet XLSX workbook.
func Bookings(bookings []types.Booking) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(bookingsSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	index, err := f.GetSheetIndex(bookingsSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	for i, header := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(bookingsSheet, cell, header); err != nil {
			return nil, err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(bookingHeaders), 1)
	if err := f.SetCellStyle(bookingsSheet, "A1", lastHeader, headerStyle); err != nil {
		return nil, err
	}

	for i, b := range bookings {
		row := []any{
			b.ID,
			b.UserID,
			b.Departure,
			b.Arrival,
			b.TravelDate,
			b.TravelTime,
			b.Seats,
			b.Price,
			string(b.Status),
			b.CreatedAt.UTC().Format("02/01/2006 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(bookingsSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "B", 12)
	_ = f.SetColWidth(bookingsSheet, "C", "D", 24)
	_ = f.SetColWidth(bookingsSheet, "E", "I", 12)
	_ = f.SetColWidth(bookingsSheet, "J", "J", 18)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
