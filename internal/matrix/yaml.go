package matrix

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/buyawarranty/warranty-quote/internal/pricing"
)

// Document is the YAML form of a pricing matrix:
//
//	fallback_price: 467
//	prices:
//	  12:
//	    50: {750: 467, 1250: 537, 2000: 597}
type Document struct {
	FallbackPrice int                         `yaml:"fallback_price,omitempty"`
	Prices        map[int]map[int]map[int]int `yaml:"prices"`
}

// Cells flattens the document in period, excess, claim limit order.
func (d *Document) Cells() []pricing.Cell {
	var cells []pricing.Cell
	for period, byExcess := range d.Prices {
		for excess, byLimit := range byExcess {
			for limit, price := range byLimit {
				cells = append(cells, pricing.Cell{
					Period:     pricing.Period(period),
					Excess:     excess,
					ClaimLimit: limit,
					Price:      price,
				})
			}
		}
	}
	pricing.SortCells(cells)
	return cells
}

// NewDocument nests cells into document form.
func NewDocument(cells []pricing.Cell, fallback int) *Document {
	d := &Document{FallbackPrice: fallback, Prices: map[int]map[int]map[int]int{}}
	for _, c := range cells {
		p := int(c.Period)
		if d.Prices[p] == nil {
			d.Prices[p] = map[int]map[int]int{}
		}
		if d.Prices[p][c.Excess] == nil {
			d.Prices[p][c.Excess] = map[int]int{}
		}
		d.Prices[p][c.Excess][c.ClaimLimit] = c.Price
	}
	return d
}

// ReadYAML parses a matrix document from path.
func ReadYAML(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "matrix: read yaml")
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "matrix: parse yaml")
	}
	if len(doc.Prices) == 0 {
		return nil, eris.New("matrix: yaml has no prices")
	}
	return &doc, nil
}

// WriteYAML saves cells as a matrix document.
func WriteYAML(path string, cells []pricing.Cell, fallback int) error {
	data, err := yaml.Marshal(NewDocument(cells, fallback))
	if err != nil {
		return eris.Wrap(err, "matrix: marshal yaml")
	}
	return eris.Wrap(os.WriteFile(path, data, 0o644), "matrix: write yaml")
}
