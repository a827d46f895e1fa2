package report

import (
	"encoding/xml"
	"fmt"
	"io"
)

// XML STRUCTURE:
//
//   <reconciliation businessDate="2023-12-28" runId="...">
//     <store n="1" name="VMART DELHI">
//       <amount column="total_ginesys_advance">100.00</amount>
//       ...
//       <totalReceived>120.00</totalReceived>
//       <difference>30.00</difference>
//     </store>
//     <totals>...</totals>
//   </reconciliation>

type xmlDocument struct {
	XMLName      xml.Name   `xml:"reconciliation"`
	BusinessDate string     `xml:"businessDate,attr"`
	RunID        string     `xml:"runId,attr,omitempty"`
	Stores       []xmlStore `xml:"store"`
	Totals       xmlStore   `xml:"totals"`
}

type xmlStore struct {
	N          int         `xml:"n,attr,omitempty"`
	Name       string      `xml:"name,attr,omitempty"`
	Amounts    []xmlAmount `xml:"amount"`
	Received   string      `xml:"totalReceived"`
	Difference string      `xml:"difference"`
}

type xmlAmount struct {
	Column string `xml:"column,attr"`
	Value  string `xml:",chardata"`
}

// WriteXML writes the XML rendition, one store element per row followed by
// the column totals.
func (r *Report) WriteXML(w io.Writer) error {
	doc := xmlDocument{
		BusinessDate: r.BusinessDate.String(),
		RunID:        r.RunID,
	}

	// Source columns only; received and difference get their own elements.
	header := r.Header()
	columns := header[1 : len(header)-2]

	build := func(n int, name string, cells []string) xmlStore {
		store := xmlStore{N: n, Name: name}
		for i, column := range columns {
			store.Amounts = append(store.Amounts, xmlAmount{Column: column, Value: cells[i]})
		}
		store.Received = cells[len(cells)-2]
		store.Difference = cells[len(cells)-1]
		return store
	}

	for i, record := range r.Records() {
		doc.Stores = append(doc.Stores, build(i+1, record[0], record[1:]))
	}

	var totals []string
	for _, amount := range r.amounts(r.Table.Totals()) {
		totals = append(totals, amount.StringFixed(Places))
	}
	doc.Totals = build(0, "", totals)

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write XML declaration: %w", err)
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to marshal XML: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("failed to write XML: %w", err)
	}
	return nil
}

// SaveXML writes the XML rendition to path.
func (r *Report) SaveXML(path string) error {
	return saveFile(path, r.WriteXML)
}
