package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"stockimport/internal"
)

// SourcesFile is the on-disk definition of data sources and the global
// color table.
type SourcesFile struct {
	Colors  map[string]string     `mapstructure:"colors"`
	Sources []internal.DataSource `mapstructure:"sources"`
}

// LoadSources reads a yaml, json or toml sources file.
func LoadSources(path string) (SourcesFile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return SourcesFile{}, fmt.Errorf("read sources file: %w", err)
	}

	var out SourcesFile
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		stockTextHook,
		decimalHook,
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&out, hooks); err != nil {
		return SourcesFile{}, fmt.Errorf("decode sources file: %w", err)
	}

	seen := map[string]bool{}
	for i := range out.Sources {
		src := &out.Sources[i]
		src.ID = strings.TrimSpace(src.ID)
		if src.ID == "" {
			return SourcesFile{}, fmt.Errorf("source %d: missing id", i)
		}
		if seen[src.ID] {
			return SourcesFile{}, fmt.Errorf("source %s: duplicate id", src.ID)
		}
		seen[src.ID] = true
		if src.Name == "" {
			src.Name = src.ID
		}
		switch src.Type {
		case "":
			src.Type = internal.SourceRegular
		case internal.SourceRegular, internal.SourceSale:
		default:
			return SourcesFile{}, fmt.Errorf("source %s: unknown type %q", src.ID, src.Type)
		}
		if f := src.Config.FormatOverride; f != "" && !f.Valid() {
			return SourcesFile{}, fmt.Errorf("source %s: unknown format %q", src.ID, f)
		}
	}
	for _, src := range out.Sources {
		if src.LinkedSaleSourceID != "" && !seen[src.LinkedSaleSourceID] {
			return SourcesFile{}, fmt.Errorf("source %s: linked sale source %q is not defined", src.ID, src.LinkedSaleSourceID)
		}
	}
	return out, nil
}

var (
	stockTextType = reflect.TypeOf(internal.StockTextMapping{})
	decimalType   = reflect.TypeOf(decimal.Decimal{})
)

// stockTextHook accepts both the list form [{text, value}] and the object
// form {text: value}.
func stockTextHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != stockTextType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Slice:
		var entries []internal.StockTextEntry
		if err := mapstructure.WeakDecode(data, &entries); err != nil {
			return nil, fmt.Errorf("stock text list: %w", err)
		}
		return internal.StockTextMapping{Entries: entries}, nil
	case reflect.Map:
		var lookup map[string]int
		if err := mapstructure.WeakDecode(data, &lookup); err != nil {
			return nil, fmt.Errorf("stock text object: %w", err)
		}
		return internal.StockTextMapping{Lookup: lookup}, nil
	}
	return data, nil
}

func decimalHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	}
	return data, nil
}
