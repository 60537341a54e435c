package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"

	"orderscan/internal"
	"orderscan/internal/util"
)

func ReadDocument(path string) (internal.Document, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return internal.Document{}, err
	}
	return DecodeDocument(filepath.Base(path), blob)
}

// DecodeDocument renders blob as plain text lines according to the
// extension of name. Unknown extensions are read as text.
func DecodeDocument(name string, blob []byte) (internal.Document, error) {
	doc := internal.Document{Name: name}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".eml":
		return decodeEmail(name, blob)
	case ".html", ".htm":
		text, err := htmlToText(string(blob))
		if err != nil {
			return internal.Document{}, fmt.Errorf("%s: %w", name, err)
		}
		doc.Source, doc.Text = internal.SourceHTML, text
	case ".pdf":
		text, err := pdfToText(blob)
		if err != nil {
			return internal.Document{}, fmt.Errorf("%s: %w", name, err)
		}
		doc.Source, doc.Text = internal.SourcePDF, text
	default:
		doc.Source, doc.Text = internal.SourceText, string(blob)
	}
	return doc, nil
}

// decodeEmail prefers a text/plain part, then the HTML part, then the
// first PDF attachment. Text that enmime derived from HTML is not used since
// it does not keep table rows on one line.
func decodeEmail(name string, raw []byte) (internal.Document, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return internal.Document{}, fmt.Errorf("%s: %w", name, err)
	}

	doc := internal.Document{Name: name, Source: internal.SourceEmail, Subject: env.GetHeader("Subject")}
	if hasPlainText(env.Root) && strings.TrimSpace(env.Text) != "" {
		doc.Text = env.Text
		return doc, nil
	}
	if env.HTML != "" {
		text, err := htmlToText(env.HTML)
		if err != nil {
			return internal.Document{}, fmt.Errorf("%s: %w", name, err)
		}
		if strings.TrimSpace(text) != "" {
			doc.Text = text
			return doc, nil
		}
	}
	for _, att := range env.Attachments {
		if !strings.HasSuffix(strings.ToLower(att.FileName), ".pdf") {
			continue
		}
		text, err := pdfToText(att.Content)
		if err != nil {
			return internal.Document{}, fmt.Errorf("%s: attachment %s: %w", name, att.FileName, err)
		}
		doc.Text = text
		return doc, nil
	}
	return doc, nil
}

func hasPlainText(p *enmime.Part) bool {
	for ; p != nil; p = p.NextSibling {
		if strings.EqualFold(p.ContentType, "text/plain") && p.FileName == "" {
			return true
		}
		if hasPlainText(p.FirstChild) {
			return true
		}
	}
	return false
}

const blockElements = "p,div,tr,li,table,h1,h2,h3,h4,h5,h6,section,article,header,footer"

// htmlToText flattens markup to one line per block element so that markers
// stay at the start of their line.
func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script,style,head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("td,th").AppendHtml(" ")
	doc.Find(blockElements).AppendHtml("\n")

	var out []string
	for _, line := range util.SplitLines(doc.Text()) {
		if line = util.NormalizeSpaces(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n"), nil
}

func pdfToText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
