// Package render turns a Pack into a Word (.docx) document. Rendering is
// pure: the same Pack always yields the same bytes.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"securitypassport/internal/passport/models"
	"securitypassport/pkg/platform/ziputil"
)

const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var ErrNilPack = errors.New("render: nil pack")

// Render produces the passport document for pack.
func Render(pack *models.Pack) ([]byte, error) {
	if pack == nil {
		return nil, ErrNilPack
	}

	var body document
	title := pack.Template.Name
	if title == "" {
		title = "Security Passport"
	}
	body.heading(styleTitle, title)
	body.field("Template", pack.Template.Code)
	body.field("Version", pack.Template.Version)
	body.field("Language", pack.Template.Language)
	body.field("Tenant", pack.TenantID)
	body.field("Generated", pack.GeneratedAt)

	for _, a := range pack.Answers {
		body.heading(styleHeading2, a.QuestionKey)
		body.paragraph(a.QuestionPrompt, true)
		body.label("Answer")
		body.paragraph(a.AnswerText, false)
		if len(a.EvidenceIDs) > 0 {
			body.field("Evidence IDs", strings.Join(a.EvidenceIDs, ", "))
		}
		body.field("Updated", a.UpdatedAt)
	}

	if len(pack.Evidence) > 0 {
		body.pageBreak()
		body.heading(styleHeading1, "Evidence")
		for _, e := range pack.Evidence {
			heading := e.Title
			if heading == "" {
				heading = e.ID
			}
			body.heading(styleHeading2, heading)
			if e.Description != "" {
				body.paragraph(e.Description, false)
			}
			body.field("File", e.OriginalFilename)
			body.field("Uploaded", e.UploadedAt)
			body.field("Content hash", e.ContentHash)
			body.field("Storage key", e.StorageKey)
		}
	}

	return pkg(body.String())
}

// pkg wraps document XML in the minimal OPC package Word expects.
func pkg(documentXML string) ([]byte, error) {
	var buf bytes.Buffer
	zw := ziputil.NewWriter(&buf)
	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", rootRelsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/styles.xml", stylesXML},
		{"word/document.xml", documentXML},
	}
	for _, p := range parts {
		if err := ziputil.WriteFile(zw, p.name, []byte(p.body)); err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close document package: %w", err)
	}
	return buf.Bytes(), nil
}
