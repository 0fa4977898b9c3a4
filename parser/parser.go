// Package parser extracts redeem-code records from the wiki page markup.
//
// The codes live in a single marker table shaped as one section-header row
// followed by three rows per entry:
//
//	<table class="redeemcode">
//	  <tr><th>Currently Active Redeem Codes</th></tr>
//	  <tr><th>Code</th><td>aFCaP4fSqejW</td></tr>
//	  <tr><th>Rewards</th><td>...</td></tr>
//	  <tr><th>Dates</th><td>November 28 - December 31, 2022</td></tr>
//	</table>
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/redeem-code-bot/models"
)

// rowsPerEntry is the number of table rows describing one code entry.
const rowsPerEntry = 3

// FindCodeTable locates the single table carrying the marker class in the
// raw markup. Zero or multiple matches abort the cycle.
func FindCodeTable(markup []byte, class string) (*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	sel := doc.Find("table." + class)
	if sel.Length() != 1 {
		return nil, TableCountError{Class: class, Count: sel.Length(), Markup: string(markup)}
	}
	return sel, nil
}

// ChunkRows discards the section-header row and partitions the remaining
// rows into consecutive groups of three, preserving source order.
func ChunkRows(table *goquery.Selection) ([][]*goquery.Selection, error) {
	var rows []*goquery.Selection
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		rows = append(rows, row)
	})
	if len(rows) == 0 || (len(rows)-1)%rowsPerEntry != 0 {
		return nil, RowCountError{Rows: len(rows), Table: outerHTML(table)}
	}

	data := rows[1:]
	groups := make([][]*goquery.Selection, 0, len(data)/rowsPerEntry)
	for i := 0; i < len(data); i += rowsPerEntry {
		groups = append(groups, data[i:i+rowsPerEntry])
	}
	return groups, nil
}

// ExtractRecord maps trimmed header-cell text to trimmed data-cell text for
// one row group. Rows missing either cell are skipped; the group must end
// up with a Code field.
func ExtractRecord(group []*goquery.Selection) (models.CodeRecord, error) {
	fields := make(map[string]string, len(group))
	for _, row := range group {
		header := row.Find("th").First()
		if header.Length() == 0 {
			continue
		}
		data := row.Find("td").First()
		if data.Length() == 0 {
			continue
		}
		fields[strings.TrimSpace(header.Text())] = strings.TrimSpace(data.Text())
	}
	if _, ok := fields[models.FieldCode]; !ok {
		return models.CodeRecord{}, MissingCodeError{Group: groupHTML(group)}
	}
	return models.CodeRecord{Fields: fields}, nil
}

// ExtractRecords chunks the table and extracts every record in row order.
func ExtractRecords(table *goquery.Selection) ([]models.CodeRecord, error) {
	groups, err := ChunkRows(table)
	if err != nil {
		return nil, err
	}
	records := make([]models.CodeRecord, 0, len(groups))
	for _, group := range groups {
		record, err := ExtractRecord(group)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func outerHTML(sel *goquery.Selection) string {
	html, err := goquery.OuterHtml(sel)
	if err != nil {
		return ""
	}
	return html
}

func groupHTML(group []*goquery.Selection) string {
	var b strings.Builder
	for _, row := range group {
		b.WriteString(outerHTML(row))
	}
	return b.String()
}
