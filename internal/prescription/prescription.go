// Package prescription renders a prescription record into a PDF. It is a
// stateless transform: the document is built per request from caller data
// and never stored.
package prescription

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// FlexString accepts a JSON string, number or null. Mobile clients send age
// and vitals readings both quoted and unquoted.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

type Patient struct {
	Name    string     `json:"name"`
	Age     FlexString `json:"age"`
	Purpose string     `json:"purpose"`
}

type Vitals struct {
	BloodPressure   FlexString `json:"blood_pressure"`
	BloodSugar      FlexString `json:"blood_sugar"`
	BodyTemperature FlexString `json:"body_temperature"`
}

// Item is one prescribed entry. Clients send either a bare string or an
// object with a "prescription" field; both decode into the same shape.
type Item struct {
	Prescription string `json:"prescription"`
}

func (i *Item) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &i.Prescription)
	}
	type plain Item
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*i = Item(p)
	return nil
}

// Document is everything that goes on the rendered page.
type Document struct {
	Patient       Patient
	DoctorName    string
	Prescriptions []Item
	Vitals        Vitals
	Date          time.Time
}

// Render lays the document out on a single A4 page and returns the PDF
// bytes.
func Render(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "", 20)
	pdf.CellFormat(0, 12, "Medical Prescription", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 8, "Date: "+doc.Date.Format("02/01/2006"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	section(pdf, "Patient Details")
	line(pdf, "Name: "+orNA(doc.Patient.Name))
	line(pdf, "Age: "+orNA(string(doc.Patient.Age)))
	line(pdf, "Injury/Disease: "+orNA(doc.Patient.Purpose))
	pdf.Ln(4)

	section(pdf, "Doctor")
	line(pdf, "Dr. "+doc.DoctorName)
	pdf.Ln(4)

	section(pdf, "Vitals")
	line(pdf, "Blood Pressure: "+orNA(string(doc.Vitals.BloodPressure)))
	line(pdf, "Blood Sugar: "+orNA(string(doc.Vitals.BloodSugar)))
	line(pdf, "Body Temperature: "+orNA(string(doc.Vitals.BodyTemperature)))
	pdf.Ln(4)

	section(pdf, "Prescriptions")
	if len(doc.Prescriptions) == 0 {
		line(pdf, "No prescriptions provided")
	}
	for i, item := range doc.Prescriptions {
		line(pdf, fmt.Sprintf("%d. %s", i+1, item.Prescription))
	}

	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, "Signature: ____________________", "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering prescription pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "U", 16)
	pdf.CellFormat(0, 9, title, "", 1, "L", false, 0, "")
}

func line(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, text, "", 1, "L", false, 0, "")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
