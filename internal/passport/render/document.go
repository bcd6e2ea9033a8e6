package render

import (
	"encoding/xml"
	"strings"
)

const (
	styleTitle    = "Title"
	styleHeading1 = "Heading1"
	styleHeading2 = "Heading2"
)

// document accumulates WordprocessingML body paragraphs.
type document struct {
	b strings.Builder
}

func (d *document) heading(style, text string) {
	d.b.WriteString(`<w:p><w:pPr><w:pStyle w:val="`)
	d.b.WriteString(style)
	d.b.WriteString(`"/></w:pPr>`)
	d.run(text, false, false)
	d.b.WriteString(`</w:p>`)
}

// field writes "Label: value" with a bold label.
func (d *document) field(label, value string) {
	d.b.WriteString(`<w:p>`)
	d.run(label+": ", true, false)
	d.run(value, false, false)
	d.b.WriteString(`</w:p>`)
}

func (d *document) label(text string) {
	d.b.WriteString(`<w:p>`)
	d.run(text+":", true, false)
	d.b.WriteString(`</w:p>`)
}

func (d *document) paragraph(text string, italic bool) {
	d.b.WriteString(`<w:p>`)
	d.run(text, false, italic)
	d.b.WriteString(`</w:p>`)
}

func (d *document) pageBreak() {
	d.b.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
}

// run writes one text run. Newlines become line breaks inside the run.
func (d *document) run(text string, bold, italic bool) {
	d.b.WriteString(`<w:r>`)
	if bold || italic {
		d.b.WriteString(`<w:rPr>`)
		if bold {
			d.b.WriteString(`<w:b/>`)
		}
		if italic {
			d.b.WriteString(`<w:i/>`)
		}
		d.b.WriteString(`</w:rPr>`)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			d.b.WriteString(`<w:br/>`)
		}
		d.b.WriteString(`<w:t xml:space="preserve">`)
		_ = xml.EscapeText(&d.b, []byte(line))
		d.b.WriteString(`</w:t>`)
	}
	d.b.WriteString(`</w:r>`)
}

func (d *document) String() string {
	return xmlHeader +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		d.b.String() +
		`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr>` +
		`</w:body></w:document>`
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const contentTypesXML = xmlHeader + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`</Types>`

const rootRelsXML = xmlHeader + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const documentRelsXML = xmlHeader + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
	`</Relationships>`

const stylesXML = xmlHeader + `<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:pPr><w:spacing w:after="120"/></w:pPr><w:rPr><w:sz w:val="22"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:pPr><w:spacing w:after="240"/></w:pPr><w:rPr><w:b/><w:sz w:val="48"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:pPr><w:keepNext/><w:spacing w:before="360" w:after="120"/><w:outlineLvl w:val="0"/></w:pPr><w:rPr><w:b/><w:sz w:val="32"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:pPr><w:keepNext/><w:spacing w:before="240" w:after="80"/><w:outlineLvl w:val="1"/></w:pPr><w:rPr><w:b/><w:sz w:val="26"/></w:rPr></w:style>` +
	`</w:styles>`
