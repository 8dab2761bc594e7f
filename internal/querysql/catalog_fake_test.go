package querysql

import (
	"context"
	"fmt"

	"github.com/roach88/lazytbl/internal/queryir"
)

// fakeCatalog answers probes for physical tables and for operations that
// do not change the column set of their input.
type fakeCatalog struct {
	tables map[string][]string
	rows   int64
	probes int
	counts int
}

func (f *fakeCatalog) ProbeColumns(_ context.Context, n *queryir.Node) ([]string, error) {
	f.probes++
	for cur := n; cur != nil; cur = cur.Input() {
		switch cur.Kind() {
		case queryir.KindTable:
			_, table := cur.TableName()
			cols, ok := f.tables[table]
			if !ok {
				return nil, fmt.Errorf("no such table %s", table)
			}
			return cols, nil
		case queryir.KindFilter, queryir.KindArrange, queryir.KindGroupBy,
			queryir.KindUngroup, queryir.KindHead, queryir.KindTail, queryir.KindDistinct:
			continue
		default:
			return nil, fmt.Errorf("fake catalog cannot probe %s", cur.Kind())
		}
	}
	return nil, fmt.Errorf("empty chain")
}

func (f *fakeCatalog) CountRows(_ context.Context, _ *queryir.Node) (int64, error) {
	f.counts++
	return f.rows, nil
}
