package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rushteam/assockit/mining"
)

// readBaskets 每行一笔交易，逗号分隔；withID 时首列为交易标识。
// 空行与只含空白的单元格被跳过，以 # 开头的行视为注释。
func readBaskets(r io.Reader, withID bool) (ids []string, baskets [][]string, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read baskets: %w", err)
		}
		if withID {
			if len(rec) == 0 {
				continue
			}
			ids = append(ids, strings.TrimSpace(rec[0]))
			rec = rec[1:]
		}
		basket := make([]string, 0, len(rec))
		for _, cell := range rec {
			if name := strings.TrimSpace(cell); name != "" {
				basket = append(basket, name)
			}
		}
		if !withID && len(basket) == 0 {
			continue
		}
		baskets = append(baskets, basket)
	}
	return ids, baskets, nil
}

func loadMatrix(path string, withID bool) (mining.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return mining.Matrix{}, err
	}
	defer f.Close()

	ids, baskets, err := readBaskets(f, withID)
	if err != nil {
		return mining.Matrix{}, err
	}
	return mining.MatrixFromBaskets(ids, baskets), nil
}

func splitItems(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
