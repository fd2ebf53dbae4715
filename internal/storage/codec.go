package storage

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Encode пишет документ в поток: JSON, сжатый zstd
func Encode(w io.Writer, doc *MapDocument) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("ошибка создания zstd encoder: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(doc); err != nil {
		enc.Close()
		return fmt.Errorf("ошибка сериализации карты: %w", err)
	}
	return enc.Close()
}

// Decode читает документ из потока
func Decode(r io.Reader) (*MapDocument, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания zstd decoder: %w", err)
	}
	defer dec.Close()

	var doc MapDocument
	if err := json.NewDecoder(dec).Decode(&doc); err != nil {
		return nil, fmt.Errorf("ошибка десериализации карты: %w", err)
	}
	return &doc, nil
}

// codec сжимает значения для BadgerDB
type codec struct {
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
}

func newCodec() (*codec, error) {
	compressor, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания zstd encoder: %w", err)
	}
	decompressor, err := zstd.NewReader(nil)
	if err != nil {
		compressor.Close()
		return nil, fmt.Errorf("ошибка создания zstd decoder: %w", err)
	}
	return &codec{compressor: compressor, decompressor: decompressor}, nil
}

func (c *codec) marshal(doc *MapDocument) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации карты: %w", err)
	}
	return c.compressor.EncodeAll(data, nil), nil
}

func (c *codec) unmarshal(data []byte) (*MapDocument, error) {
	raw, err := c.decompressor.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки карты: %w", err)
	}
	var doc MapDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("ошибка десериализации карты: %w", err)
	}
	return &doc, nil
}

func (c *codec) close() {
	c.compressor.Close()
	c.decompressor.Close()
}
