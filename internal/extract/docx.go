package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

// docxMainContentTypes are the content types of a main document part.
var docxMainContentTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml": true,
	"application/vnd.ms-word.document.macroEnabled.main+xml":                           true,
}

// WordprocessingML namespaces (transitional and strict).
var wordNamespaces = map[string]bool{
	"http://schemas.openxmlformats.org/wordprocessingml/2006/main": true,
	"http://purl.oclc.org/ooxml/wordprocessingml/main":             true,
}

const markupCompatibilityNamespace = "http://schemas.openxmlformats.org/markup-compatibility/2006"

// embeddedContent are run children whose paragraphs belong to a drawing or
// text box, not to the enclosing body paragraph.
var embeddedContent = map[string]bool{
	"drawing":     true,
	"pict":        true,
	"object":      true,
	"txbxContent": true,
}

type contentTypes struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// findDocxMainDocumentPath returns the main part named in [Content_Types].xml
// without its leading slash, or "" if none is declared.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	f, err := zr.Open(contentTypesPath)
	if err != nil {
		return ""
	}
	defer f.Close()
	var ct contentTypes
	if err := xml.NewDecoder(f).Decode(&ct); err != nil {
		return ""
	}
	for _, o := range ct.Overrides {
		if docxMainContentTypes[o.ContentType] {
			return strings.TrimPrefix(o.PartName, "/")
		}
	}
	return ""
}

// extractDOCX joins the text of every body paragraph with a single space.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: DOCX is not a zip: %w", ErrMalformed, err)
	}

	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	f, err := zr.Open(docPath)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", ErrMalformed, docPath, err)
	}
	defer f.Close()

	paras, err := docxParagraphs(f)
	if err != nil {
		return "", fmt.Errorf("%w: parse %s: %w", ErrMalformed, docPath, err)
	}
	return strings.Join(paras, " "), nil
}

func isWordElement(name xml.Name, local string) bool {
	return name.Local == local && wordNamespaces[name.Space]
}

// docxParagraphs returns the text of each w:p directly under w:body, in order.
// Run content counts only when it is a direct child of w:r, so tab stops in
// paragraph properties are not mistaken for tab characters. Drawings and text
// boxes inside a paragraph are skipped.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		stack  []xml.Name
		paras  []string
		cur    *strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			// mc:Fallback repeats the content of mc:Choice.
			if t.Name.Space == markupCompatibilityNamespace && t.Name.Local == "Fallback" {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			if cur != nil && wordNamespaces[t.Name.Space] && embeddedContent[t.Name.Local] {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			var parent xml.Name
			if n := len(stack); n > 0 {
				parent = stack[n-1]
			}
			stack = append(stack, t.Name)
			if !wordNamespaces[t.Name.Space] {
				continue
			}
			if t.Name.Local == "p" && isWordElement(parent, "body") {
				cur = &strings.Builder{}
				continue
			}
			if cur == nil || !isWordElement(parent, "r") {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unbalanced element %s", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
			switch {
			case isWordElement(t.Name, "t"):
				inText = false
			case isWordElement(t.Name, "p") && cur != nil && len(stack) > 0 && isWordElement(stack[len(stack)-1], "body"):
				paras = append(paras, cur.String())
				cur = nil
			}
		case xml.CharData:
			if inText && cur != nil {
				cur.Write(t)
			}
		}
	}
	return paras, nil
}
