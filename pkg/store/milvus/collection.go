package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/tunogya/gametrend/pkg/model"
	"github.com/tunogya/gametrend/pkg/window"
)

// DefaultCollectionName is the default collection name for history windows
const DefaultCollectionName = "gametrend_windows"

// Field names of the window collection
const (
	FieldWindowID       = "window_id"
	FieldEmbedding      = "embedding"
	FieldRunID          = "run_id"
	FieldAnchorYear     = "anchor_year"
	FieldSplit          = "split"
	FieldFeatureVersion = "feature_version"
)

// Split marks which partition a window was trained or tested in
type Split int32

const (
	SplitTrain Split = 0
	SplitTest  Split = 1
)

func (s Split) String() string {
	if s == SplitTest {
		return "test"
	}
	return "train"
}

// CollectionConfig holds configuration for creating a collection
type CollectionConfig struct {
	Name      string
	Dimension int // sequence length * platforms * features
	Shards    int
}

// CollectionConfigFor sizes a collection for the windows of a dataset
func CollectionConfigFor(name string, ds *window.Dataset) CollectionConfig {
	if name == "" {
		name = DefaultCollectionName
	}
	shape := ds.InputShape()
	return CollectionConfig{
		Name:      name,
		Dimension: shape[0] * shape[1],
		Shards:    1,
	}
}

// CreateCollection creates the window collection if it does not exist
func (c *Client) CreateCollection(ctx context.Context, cfg CollectionConfig) error {
	if cfg.Dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", cfg.Dimension)
	}
	exists, err := c.HasCollection(ctx, cfg.Name)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: cfg.Name,
		Description:    "Yearly platform sales history windows for similarity search",
		Fields: []*entity.Field{
			{
				Name:       FieldWindowID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       FieldEmbedding,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(cfg.Dimension)},
			},
			{
				Name:       FieldRunID,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{Name: FieldAnchorYear, DataType: entity.FieldTypeInt32},
			{Name: FieldSplit, DataType: entity.FieldTypeInt32},
			{Name: FieldFeatureVersion, DataType: entity.FieldTypeInt32},
		},
	}

	shards := cfg.Shards
	if shards <= 0 {
		shards = 1
	}
	if err := c.conn.CreateCollection(ctx, schema, int32(shards)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// WindowData holds one indexed window
type WindowData struct {
	WindowID       string
	RunID          string
	Embedding      []float32
	AnchorYear     int32
	Split          Split
	FeatureVersion int32
}

// Embedding flattens window history into a float32 vector
func Embedding(input [][]float64) []float32 {
	var out []float32
	for _, step := range input {
		for _, v := range step {
			out = append(out, float32(v))
		}
	}
	return out
}

// FromDataset converts every window of ds into index rows
func FromDataset(ds *window.Dataset, runID string) []*WindowData {
	out := make([]*WindowData, len(ds.Windows))
	for i, w := range ds.Windows {
		out[i] = fromWindow(w, runID, i >= ds.Split)
	}
	return out
}

func fromWindow(w *model.Window, runID string, test bool) *WindowData {
	split := SplitTrain
	if test {
		split = SplitTest
	}
	return &WindowData{
		WindowID:       w.WindowID,
		RunID:          runID,
		Embedding:      Embedding(w.Input),
		AnchorYear:     int32(w.AnchorYear),
		Split:          split,
		FeatureVersion: int32(w.FeatureVersion),
	}
}

// columns builds the column entities of a batch; all embeddings must share one dimension
func columns(dataList []*WindowData) ([]entity.Column, error) {
	dim := len(dataList[0].Embedding)
	windowIDs := make([]string, len(dataList))
	embeddings := make([][]float32, len(dataList))
	runIDs := make([]string, len(dataList))
	years := make([]int32, len(dataList))
	splits := make([]int32, len(dataList))
	versions := make([]int32, len(dataList))

	for i, d := range dataList {
		if len(d.Embedding) != dim {
			return nil, fmt.Errorf("window %s has dimension %d, want %d", d.WindowID, len(d.Embedding), dim)
		}
		windowIDs[i] = d.WindowID
		embeddings[i] = d.Embedding
		runIDs[i] = d.RunID
		years[i] = d.AnchorYear
		splits[i] = int32(d.Split)
		versions[i] = d.FeatureVersion
	}

	return []entity.Column{
		entity.NewColumnVarChar(FieldWindowID, windowIDs),
		entity.NewColumnFloatVector(FieldEmbedding, dim, embeddings),
		entity.NewColumnVarChar(FieldRunID, runIDs),
		entity.NewColumnInt32(FieldAnchorYear, years),
		entity.NewColumnInt32(FieldSplit, splits),
		entity.NewColumnInt32(FieldFeatureVersion, versions),
	}, nil
}

// Upsert writes windows, replacing any with the same ID
func (c *Client) Upsert(ctx context.Context, collectionName string, dataList []*WindowData) error {
	if len(dataList) == 0 {
		return nil
	}
	cols, err := columns(dataList)
	if err != nil {
		return err
	}
	if _, err := c.conn.Upsert(ctx, collectionName, "", cols...); err != nil {
		return fmt.Errorf("failed to upsert: %w", err)
	}
	return nil
}

// IndexDataset creates, fills and loads the collection for the windows of ds
func (c *Client) IndexDataset(ctx context.Context, name string, ds *window.Dataset, runID string) (int, error) {
	cfg := CollectionConfigFor(name, ds)
	if err := c.CreateCollection(ctx, cfg); err != nil {
		return 0, err
	}
	data := FromDataset(ds, runID)
	if err := c.Upsert(ctx, cfg.Name, data); err != nil {
		return 0, err
	}
	if err := c.seal(ctx, cfg.Name); err != nil {
		return 0, err
	}
	return len(data), nil
}

// SearchResult represents a single search hit
type SearchResult struct {
	WindowID       string
	RunID          string
	Score          float32
	AnchorYear     int
	Split          Split
	FeatureVersion int
}

// RunFilter restricts a search to the windows of one run
func RunFilter(runID string) string {
	if runID == "" {
		return ""
	}
	return fmt.Sprintf("%s == %q", FieldRunID, runID)
}

// Search performs a TopK cosine similarity search
func (c *Client) Search(ctx context.Context, collectionName string, embedding []float32, filter string, topK int) ([]SearchResult, error) {
	vectors := []entity.Vector{entity.FloatVector(embedding)}

	sp, err := entity.NewIndexFlatSearchParam()
	if err != nil {
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	outputFields := []string{FieldWindowID, FieldRunID, FieldAnchorYear, FieldSplit, FieldFeatureVersion}

	results, err := c.conn.Search(
		ctx,
		collectionName,
		nil,
		filter,
		outputFields,
		vectors,
		FieldEmbedding,
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	if len(results) == 0 {
		return nil, nil
	}

	hits := make([]SearchResult, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount; i++ {
		hit := SearchResult{Score: results[0].Scores[i]}

		for _, field := range results[0].Fields {
			switch col := field.(type) {
			case *entity.ColumnVarChar:
				val, _ := col.ValueByIdx(i)
				switch col.Name() {
				case FieldWindowID:
					hit.WindowID = val
				case FieldRunID:
					hit.RunID = val
				}
			case *entity.ColumnInt32:
				val, _ := col.ValueByIdx(i)
				switch col.Name() {
				case FieldAnchorYear:
					hit.AnchorYear = int(val)
				case FieldSplit:
					hit.Split = Split(val)
				case FieldFeatureVersion:
					hit.FeatureVersion = int(val)
				}
			}
		}

		hits = append(hits, hit)
	}

	return hits, nil
}
