package convert

import (
	"github.com/gen2brain/go-fitz"
)

// PageCounter reports how many pages a PDF has. The planner probes lazily,
// only for fan-out modes.
type PageCounter interface {
	PageCount(path string) (int, error)
}

// FitzPageCounter probes page counts with MuPDF.
type FitzPageCounter struct{}

func (FitzPageCounter) PageCount(path string) (int, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return 0, NewCorruptSource("open pdf", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}
