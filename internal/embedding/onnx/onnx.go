//go:build onnx

package onnx

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/rcliao/alphamind/internal/embedding"
)

const (
	// DefaultDims matches all-MiniLM-L6-v2.
	DefaultDims = 384
	maxSeqLen   = 128
)

func init() {
	embedding.Register("onnx", func(o embedding.Options) (embedding.Embedder, error) {
		return New(Config{
			ModelPath:     o.ModelPath,
			TokenizerPath: o.TokenizerPath,
			LibraryPath:   o.LibraryPath,
			Dims:          o.Dims,
		})
	})
}

// Config configures the ONNX embedder.
type Config struct {
	// ModelPath is the path to the .onnx model file.
	ModelPath string
	// TokenizerPath is the path to the HuggingFace tokenizer.json file.
	TokenizerPath string
	// LibraryPath points at libonnxruntime. Empty uses the loader default.
	LibraryPath string
	Dims        int
}

// Embedder generates mean-pooled sentence embeddings.
type Embedder struct {
	mu        sync.Mutex
	session   *ort.DynamicAdvancedSession
	tokenizer *Tokenizer
	dims      int
}

var (
	envOnce sync.Once
	envErr  error
)

func initEnvironment(libPath string) error {
	envOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// New loads the tokenizer and model and opens an inference session.
func New(cfg Config) (*Embedder, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("model path is required")
	}
	if cfg.TokenizerPath == "" {
		return nil, fmt.Errorf("tokenizer path is required")
	}
	if cfg.Dims == 0 {
		cfg.Dims = DefaultDims
	}

	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("initialize onnx runtime: %w", err)
	}

	tok, err := LoadTokenizer(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	slog.Debug("onnx embedder ready", "component", "embedding", "model", cfg.ModelPath, "dims", cfg.Dims)
	return &Embedder{session: session, tokenizer: tok, dims: cfg.Dims}, nil
}

// Embed runs the model over text and mean-pools the attended token states.
func (e *Embedder) Embed(ctx context.Context, text string) (embedding.Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, mask := e.tokenizer.Encode(text, maxSeqLen)
	typeIDs := make([]int64, maxSeqLen)

	shape := ort.NewShape(1, int64(maxSeqLen))
	idsT, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer idsT.Destroy()
	maskT, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer maskT.Destroy()
	typeT, err := ort.NewTensor(shape, typeIDs)
	if err != nil {
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	defer typeT.Destroy()

	outputs := []ort.Value{nil}
	e.mu.Lock()
	err = e.session.Run([]ort.Value{idsT, maskT, typeT}, outputs)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}
	vec, err := pool(out.GetData(), out.GetShape(), mask, e.dims)
	if err != nil {
		return nil, err
	}
	return embedding.Normalize(vec), nil
}

func (e *Embedder) Dims() int { return e.dims }

// Close releases the inference session.
func (e *Embedder) Close() error {
	if e.session != nil {
		return e.session.Destroy()
	}
	return nil
}

// pool reduces model output to one vector. Output shaped [1, dims] is
// already pooled; [1, seq, dims] is averaged over attended positions.
func pool(data []float32, shape ort.Shape, mask []int64, dims int) (embedding.Vector, error) {
	switch len(shape) {
	case 2:
		if len(data) < dims {
			return nil, fmt.Errorf("output has %d values, want %d", len(data), dims)
		}
		vec := make(embedding.Vector, dims)
		copy(vec, data[:dims])
		return vec, nil
	case 3:
		if shape[0] != 1 {
			return nil, fmt.Errorf("expected batch size 1, got %d", shape[0])
		}
		if shape[2] != int64(dims) {
			return nil, fmt.Errorf("hidden size %d, want %d", shape[2], dims)
		}
		seq := int(shape[1])
		vec := make(embedding.Vector, dims)
		var attended float32
		for i := 0; i < seq && i < len(mask); i++ {
			if mask[i] == 0 {
				continue
			}
			attended++
			off := i * dims
			for j := 0; j < dims; j++ {
				vec[j] += data[off+j]
			}
		}
		if attended > 0 {
			for j := range vec {
				vec[j] /= attended
			}
		}
		return vec, nil
	default:
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}
}
