package docparse

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"path"
	"strings"

	"golang.org/x/net/html"
)

func (p *Parser) epubCascade() []strategy {
	return []strategy{
		{name: "epub-spine", run: extractEPUBSpine},
		{name: "printable-fallback", run: extractPrintableRuns},
	}
}

type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Manifest struct {
		Items []struct {
			ID        string `xml:"id,attr"`
			Href      string `xml:"href,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// extractEPUBSpine follows the EPUB container chain: container.xml names the
// OPF package, the package's spine orders the manifest's XHTML chapters, and
// each chapter is reduced to visible text. Chapter boundaries become blank
// lines for the segmenter.
func extractEPUBSpine(_ context.Context, doc SourceDocument) (string, error) {
	containerXML, err := zipMember(doc.Data, "META-INF/container.xml")
	if err != nil {
		return "", err
	}
	var container epubContainer
	if err := xml.Unmarshal(containerXML, &container); err != nil {
		return "", fmt.Errorf("container.xml: %w", err)
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		return "", fmt.Errorf("container.xml names no rootfile")
	}

	opfPath := container.Rootfiles[0].FullPath
	opfXML, err := zipMember(doc.Data, opfPath)
	if err != nil {
		return "", err
	}
	var pkg epubPackage
	if err := xml.Unmarshal(opfXML, &pkg); err != nil {
		return "", fmt.Errorf("opf package: %w", err)
	}

	hrefByID := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		if strings.Contains(item.MediaType, "html") || strings.Contains(item.MediaType, "xml") {
			hrefByID[item.ID] = item.Href
		}
	}

	opfDir := path.Dir(opfPath)
	var sb strings.Builder
	for _, ref := range pkg.Spine.ItemRefs {
		href, ok := hrefByID[ref.IDRef]
		if !ok {
			continue
		}
		memberPath := href
		if opfDir != "." {
			memberPath = path.Join(opfDir, href)
		}
		content, err := zipMember(doc.Data, memberPath)
		if err != nil {
			continue
		}
		root, err := html.Parse(bytes.NewReader(content))
		if err != nil {
			continue
		}
		text := collectVisibleText(root)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no readable spine documents (%d itemrefs)", len(pkg.Spine.ItemRefs))
	}
	return sb.String(), nil
}
