package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Int(42)
	var _ Value = Float(1.5)
	var _ Value = Bool(true)
	var _ Value = List{String("a"), Int(1)}
	var _ Value = Record{"key": String("value")}
}

func TestShapeOf(t *testing.T) {
	tests := []struct {
		name  string
		input Value
		want  Shape
	}{
		{"nil", nil, ShapeNull},
		{"null", Null{}, ShapeNull},
		{"nil record", Record(nil), ShapeNull},
		{"string", String("x"), ShapeScalar},
		{"int", Int(0), ShapeScalar},
		{"float", Float(0.5), ShapeScalar},
		{"bool", Bool(false), ShapeScalar},
		{"record", Record{}, ShapeRecord},
		{"empty list", List{}, ShapeRecordArray},
		{"record array", List{Record{}, Record{"id": String("1")}}, ShapeRecordArray},
		{"mixed list", List{Record{}, String("1")}, ShapeList},
		{"scalar list", List{Int(1)}, ShapeList},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShapeOf(tt.input))
		})
	}
}

func TestRecordCloneIsShallow(t *testing.T) {
	nested := Record{"special": String("s")}
	original := Record{
		"name":       String("n"),
		"properties": nested,
	}

	clone := original.Clone()
	delete(clone, "name")
	clone["extra"] = Bool(true)

	assert.Contains(t, original, "name")
	assert.NotContains(t, original, "extra")

	// Nested structures are shared, not copied.
	clone["properties"].(Record)["special"] = String("changed")
	assert.Equal(t, String("changed"), nested["special"])
}

func TestRecordCloneNil(t *testing.T) {
	var r Record
	assert.Nil(t, r.Clone())
}

func TestRecordID(t *testing.T) {
	id, ok := Record{"id": String("parent-id")}.ID()
	assert.True(t, ok)
	assert.Equal(t, String("parent-id"), id)

	_, ok = Record{}.ID()
	assert.False(t, ok)
}

func TestRecordSortedKeysUTF16Order(t *testing.T) {
	rec := Record{
		"a":  Int(1),
		"A":  Int(2),
		"aa": Int(3),
		"aA": Int(4),
		"Aa": Int(5),
		"AA": Int(6),
	}

	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, rec.SortedKeys())
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(Null{}))
	assert.False(t, IsNull(Bool(false)))
	assert.False(t, IsNull(String("")))
	assert.False(t, IsNull(Int(0)))
}
