package knowledge

import (
	"context"
	"hash/fnv"
)

// fakeEmbedder 确定性嵌入：同一文本得到同一单位向量
type fakeEmbedder struct {
	dims  int
	calls int
	err   error
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{dims: 384}
}

func (f *fakeEmbedder) vector(text string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	vec := make([]float32, f.dims)
	vec[h.Sum32()%uint32(f.dims)] = 1
	return vec
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }

func (f *fakeEmbedder) Model() string { return "fake-minilm" }
