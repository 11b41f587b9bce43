package coverage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// LoadCells reads population cells from CSV with a header row containing
// lat, lng and pop_actual (or intensity when pop_actual is absent).
func LoadCells(r io.Reader) ([]Cell, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	latCol, ok1 := idx["lat"]
	lngCol, ok2 := idx["lng"]
	popCol, ok3 := idx["pop_actual"]
	if !ok3 {
		popCol, ok3 = idx["intensity"]
	}
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("header %v: need lat, lng and pop_actual", header)
	}

	var cells []Cell
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		lat, err1 := strconv.ParseFloat(rec[latCol], 64)
		lng, err2 := strconv.ParseFloat(rec[lngCol], 64)
		pop, err3 := strconv.ParseFloat(rec[popCol], 64)
		if err := errors.Join(err1, err2, err3); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cells = append(cells, Cell{Location: orb.Point{lng, lat}, Population: pop})
	}
	return cells, nil
}
