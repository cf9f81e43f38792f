package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Ramsey-B/fern/pkg/models"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func contactsTable(items []models.Contact) string {
	rows := make([][]string, 0, len(items))
	for _, c := range items {
		rows = append(rows, []string{c.ID, c.Name, c.Company, c.Email, c.Phone, string(c.Source), c.CreatedAt.Local().Format(time.DateTime)})
	}
	return renderTable([]string{"ID", "Name", "Company", "Email", "Phone", "Source", "Created"}, rows, nil)
}

func contactDetail(c models.Contact) string {
	fields := [][]string{
		{"ID", c.ID},
		{"Name", c.Name},
		{"Title", c.Title},
		{"Company", c.Company},
		{"Email", c.Email},
		{"Phone", c.Phone},
		{"Website", c.Website},
		{"Address", c.Address},
		{"Notes", c.Notes},
		{"Source", string(c.Source)},
		{"Created", c.CreatedAt.Local().Format(time.DateTime)},
	}
	if len(c.Image) > 0 {
		fields = append(fields, []string{"Image", fmt.Sprintf("%d bytes", len(c.Image))})
	}
	return renderTable([]string{"Field", "Value"}, fields, nil)
}

func matchesTable(matches []models.MatchResult) string {
	rows := make([][]string, 0, len(matches))
	for i, m := range matches {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			m.Contact.ID,
			m.Contact.Name,
			m.Contact.Email,
			fmt.Sprintf("%.2f", m.Score),
			string(m.Tier),
			strings.Join(m.MatchedFields, ", "),
		})
	}
	return renderTable(
		[]string{"#", "ID", "Name", "Email", "Score", "Tier", "Matched"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
	)
}
