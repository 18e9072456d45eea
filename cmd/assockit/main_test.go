package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/assockit/engine"
	"github.com/rushteam/assockit/mining"
	"github.com/rushteam/assockit/pkg/logging"
	"github.com/rushteam/assockit/store"
)

func TestReadBaskets(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		withID  bool
		ids     []string
		baskets [][]string
	}{
		{
			name:    "plain",
			in:      "bread,milk\nbread, butter ,jam\n\nmilk\n",
			baskets: [][]string{{"bread", "milk"}, {"bread", "butter", "jam"}, {"milk"}},
		},
		{
			name:    "comments and blank cells",
			in:      "# header\nbread,,milk\n,\n",
			baskets: [][]string{{"bread", "milk"}},
		},
		{
			name:    "with id",
			in:      "t1,bread,milk\nt2,jam\nt3\n",
			withID:  true,
			ids:     []string{"t1", "t2", "t3"},
			baskets: [][]string{{"bread", "milk"}, {"jam"}, {}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, baskets, err := readBaskets(strings.NewReader(tt.in), tt.withID)
			require.NoError(t, err)
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, tt.baskets, baskets)
		})
	}

	_, _, err := readBaskets(strings.NewReader("a,\"b\n"), false)
	assert.Error(t, err)
}

func TestSplitItems(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, splitItems(" A, ,B,"))
	assert.Empty(t, splitItems(""))
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	inputPath, withID, items, item, pipelinePath = "", false, "", "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestCLI_MineThenServe(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ASSOCKIT_CONFIG", "")
	t.Setenv("ASSOCKIT_STORE_BACKEND", "badger")
	t.Setenv("ASSOCKIT_STORE_BADGER_PATH", filepath.Join(dir, "db"))
	t.Setenv("ASSOCKIT_LOG_LEVEL", "disabled")

	input := filepath.Join(dir, "baskets.csv")
	require.NoError(t, os.WriteFile(input, []byte("A,B\nA,B,C\nA\nB,C\n"), 0o600))

	var mined mineOutput
	require.NoError(t, json.Unmarshal([]byte(execute(t, "mine", "--input", input, "--min-support", "0.5", "--top", "0")), &mined))
	assert.NotEmpty(t, mined.Snapshot)
	assert.Len(t, mined.Itemsets, 5)
	assert.Len(t, mined.Rules, 4)
	assert.Equal(t, 4, mined.Stats.TotalRules)

	// 不带 --input 时从 badger 恢复上一次的快照
	var recs []engine.RecommendationView
	require.NoError(t, json.Unmarshal([]byte(execute(t, "recommend", "--items", "A")), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "B", recs[0].Item)
	assert.Equal(t, []string{"A"}, recs[0].BasedOn)

	var together []engine.TogetherView
	require.NoError(t, json.Unmarshal([]byte(execute(t, "together", "--item", "B")), &together))
	require.Len(t, together, 2)
	assert.Equal(t, "C", together[0].Item)

	assert.NotEmpty(t, strings.TrimSpace(execute(t, "version")))
}

const testPipeline = `
pipeline:
  name: cli
  nodes:
    - type: recall.association
    - type: filter
      config:
        filters:
          - type: basket
          - type: blacklist
            key: cli:blocked
    - type: rerank.sort
    - type: rerank.topn
      config:
        n: 1
`

func TestRunPipeline(t *testing.T) {
	ctx := context.Background()
	e := engine.New(engine.WithLogger(logging.Nop()))
	m := mining.MatrixFromBaskets(nil, [][]string{{"A", "B"}, {"A", "B", "C"}, {"A"}, {"B", "C"}})
	_, err := e.Analyze(ctx, m, engine.Params{MinSupport: 0.5, Metric: "confidence", MinThreshold: 0.5})
	require.NoError(t, err)

	st := store.NewMemoryStore()
	defer st.Close()

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testPipeline), 0o600))

	ids := func(out []pipelineItem) []string {
		got := make([]string, len(out))
		for i, it := range out {
			got[i] = it.Item
		}
		return got
	}

	// 未设置 --top 时使用 YAML 中 rerank.topn 的 n
	out, err := runPipeline(ctx, e, st, path, []string{"B"}, map[string]any{})
	require.NoError(t, err)
	require.Equal(t, []string{"C"}, ids(out))
	assert.InDelta(t, 1.0, out[0].Score, 1e-9)
	assert.Equal(t, "B", out[0].Labels["based_on"].Value)

	out, err = runPipeline(ctx, e, st, path, []string{"B"}, map[string]any{"top_n": 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, ids(out))

	// 黑名单从会话存储读取
	require.NoError(t, st.Set(ctx, "cli:blocked", []byte(`["C"]`)))
	out, err = runPipeline(ctx, e, st, path, []string{"B"}, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, ids(out))

	_, err = runPipeline(ctx, e, st, filepath.Join(t.TempDir(), "absent.yaml"), nil, nil)
	assert.Error(t, err)
}
