package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
)

// testPage is one page of a generated PDF. A nil stream means the page has no
// /Contents entry at all.
type testPage struct {
	stream *string
}

func textPage(s string) testPage {
	cs := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", s)
	return testPage{stream: &cs}
}

func graphicsPage() testPage {
	cs := "0 0 1 rg 72 72 100 100 re f"
	return testPage{stream: &cs}
}

func blankPage() testPage {
	return testPage{}
}

// buildPDF writes a minimal PDF 1.4 file with a correct xref table.
func buildPDF(pages ...testPage) []byte {
	// Objects: 1 catalog, 2 page tree, 3 font, then per page: page (+ content stream).
	var objs []string
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")
	objs = append(objs, "") // page tree, filled in once kids are known
	objs = append(objs, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var kids []string
	for _, p := range pages {
		pageNum := len(objs) + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageNum))
		if p.stream == nil {
			objs = append(objs, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> >>")
			continue
		}
		contentNum := pageNum + 1
		objs = append(objs, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", contentNum))
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(*p.stream), *p.stream))
	}
	objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

// docxBody wraps paragraph XML in a WordprocessingML document.
func docxBody(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`
}

// paragraphsXML renders one w:p per entry, each with a single run.
func paragraphsXML(paras ...string) string {
	var b strings.Builder
	for _, p := range paras {
		if p == "" {
			b.WriteString(`<w:p/>`)
			continue
		}
		b.WriteString(`<w:p><w:r><w:t xml:space="preserve">` + p + `</w:t></w:r></w:p>`)
	}
	return b.String()
}

// buildDocx returns a .docx zip whose parts map zip paths to contents.
func buildDocx(parts map[string]string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range parts {
		fw, _ := w.Create(name)
		_, _ = fw.Write([]byte(content))
	}
	_ = w.Close()
	return buf.Bytes()
}

// minimalDocx returns a .docx with word/document.xml holding the given paragraphs.
func minimalDocx(paras ...string) []byte {
	return buildDocx(map[string]string{
		docxDocumentXMLPath: docxBody(paragraphsXML(paras...)),
	})
}

// docxWithContentTypes returns a .docx whose main part lives at docPath and is
// declared in [Content_Types].xml.
func docxWithContentTypes(docPath string, paras ...string) []byte {
	return buildDocx(map[string]string{
		contentTypesPath: `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override PartName="/` + docPath + `" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
		docPath: docxBody(paragraphsXML(paras...)),
	})
}
