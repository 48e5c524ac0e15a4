package service

import (
	"strings"

	"stefwrites/landing-api/internal/model"
)

// ExportLimit caps how many rows a single CSV export pulls upstream.
const ExportLimit = 10000

var csvHeader = []string{"id", "email", "role", "usecase", "keywords", "created_at"}

// BuildCSV renders submissions in the fixed export column order. The
// format matches what the admin dashboard already parses: newlines in
// free text become spaces, keywords join with a pipe, and embedded
// commas are not quoted.
func BuildCSV(rows []model.Submission) string {
	var b strings.Builder

	b.WriteString(strings.Join(csvHeader, ","))
	b.WriteByte('\n')

	for _, r := range rows {
		fields := []string{
			r.ID,
			r.Email,
			r.Role,
			flatten(r.Usecase),
			strings.Join(r.Keywords, "|"),
			csvTime(r),
		}

		b.WriteString(strings.Join(fields, ","))
		b.WriteByte('\n')
	}

	return b.String()
}

func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}

func csvTime(r model.Submission) string {
	if r.CreatedAt.IsZero() {
		return ""
	}

	return r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
}
