package tag

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	// Tag is the wrapper over zap.Field used by the logging interface.
	Tag struct {
		// keep this field private
		field zap.Field
	}
)

// NewZapTag creates a new Tag from a raw zap.Field.
func NewZapTag(field zap.Field) Tag {
	return Tag{
		field: field,
	}
}

func (t Tag) Field() zap.Field {
	return t.field
}

func (t Tag) Key() string {
	return t.field.Key
}

func (t Tag) Value() interface{} {
	// Not for production use.
	enc := zapcore.NewMapObjectEncoder()
	t.field.AddTo(enc)
	for _, val := range enc.Fields {
		return val
	}
	return nil
}

func NewStringTag(key string, value string) Tag {
	return Tag{
		field: zap.String(key, value),
	}
}

func NewStringsTag(key string, value []string) Tag {
	return Tag{
		field: zap.Strings(key, value),
	}
}

func NewInt64(key string, value int64) Tag {
	return Tag{
		field: zap.Int64(key, value),
	}
}

func NewInt(key string, value int) Tag {
	return Tag{
		field: zap.Int(key, value),
	}
}

func NewBoolTag(key string, value bool) Tag {
	return Tag{
		field: zap.Bool(key, value),
	}
}

func NewErrorTag(value error) Tag {
	// NOTE zap already chose "error" as the key
	return Tag{
		field: zap.Error(value),
	}
}

func NewDurationTag(key string, value time.Duration) Tag {
	return Tag{
		field: zap.Duration(key, value),
	}
}

func NewTimeTag(key string, value time.Time) Tag {
	return Tag{
		field: zap.Time(key, value),
	}
}
