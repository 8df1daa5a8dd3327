package features

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullForm() Form {
	f := make(Form, Count)
	for _, k := range Keys() {
		f[k] = "1.5"
	}
	return f
}

func TestSchemaIsExhaustive(t *testing.T) {
	s := Schema()
	require.Len(t, s, 17)

	seen := make(map[string]bool)
	for i, f := range s {
		assert.Equal(t, Key(i), f.Key, "schema order must match key order")
		assert.False(t, seen[f.Name], "duplicate feature %s", f.Name)
		seen[f.Name] = true
		assert.Less(t, f.Range.Min, f.Range.Max, "range of %s", f.Name)

		k, ok := Lookup(f.Name)
		assert.True(t, ok)
		assert.Equal(t, f.Key, k)
	}
}

func TestCategoriesCoverSchema(t *testing.T) {
	var v Vector
	total := 0
	for _, c := range Categories() {
		total += len(v.ByCategory(c))
	}
	assert.Equal(t, Count, total)
	assert.Len(t, v.ByCategory(LearningFocus), 2)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		key   Key
		value float64
		want  float64
	}{
		{"at min", TImage, 5.0, 0},
		{"at max", TImage, 10.0, 100},
		{"midpoint", TImage, 7.5, 50},
		{"below range clamps", TImage, 1.0, 0},
		{"above range clamps", NMsgsPosted, 1000, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Normalize(tt.key, tt.value), 1e-9)
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "5.5s", FormatValue(TImage, 5.5))
	assert.Equal(t, "27%", FormatValue(NStandardQuestionsCorrect, 27))
	assert.Equal(t, "106", FormatValue(NMsgsPosted, 106))
}

func TestFormVector(t *testing.T) {
	v, err := fullForm().Vector()
	require.NoError(t, err)
	for _, k := range Keys() {
		assert.Equal(t, 1.5, v.Get(k))
	}
}

func TestFormVector_FirstInvalidFieldWins(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(Form)
		wantKey Key
		wantMsg string
	}{
		{
			name:    "missing field",
			mutate:  func(f Form) { delete(f, TAudio) },
			wantKey: TAudio,
			wantMsg: "Invalid input for T_audio. Please enter a number.",
		},
		{
			name:    "blank field",
			mutate:  func(f Form) { f[TRead] = "  " },
			wantKey: TRead,
			wantMsg: "Invalid input for T_read. Please enter a number.",
		},
		{
			name: "non-numeric reported before later errors",
			mutate: func(f Form) {
				f[TVideo] = "abc"
				f[NMsgsPosted] = "xyz"
			},
			wantKey: TVideo,
			wantMsg: "Invalid input for T_video. Please enter a number.",
		},
		{
			name:    "not a number",
			mutate:  func(f Form) { f[SkippedLos] = "NaN" },
			wantKey: SkippedLos,
			wantMsg: "Invalid input for Skipped_los. Please enter a number.",
		},
		{
			name:    "negative",
			mutate:  func(f Form) { f[TResult] = "-2" },
			wantKey: TResult,
			wantMsg: "Invalid input for T_result. Value must not be negative.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fullForm()
			tt.mutate(f)

			_, err := f.Vector()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidField))

			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.wantKey, fe.Key)
			assert.Equal(t, tt.wantMsg, fe.Error())
		})
	}
}

func TestFormLenient(t *testing.T) {
	f := fullForm()
	f[TImage] = "oops"
	f[TVideo] = "Inf"
	v := f.Lenient()
	assert.Equal(t, 0.0, v.Get(TImage))
	assert.Equal(t, 0.0, v.Get(TVideo))
	assert.Equal(t, 1.5, v.Get(TRead))
}

func TestVectorJSON(t *testing.T) {
	var v Vector
	v[TImage] = 5.5
	v[NQuestionsOnOutlines] = 56.5

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var m map[string]float64
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Len(t, m, Count)
	assert.Equal(t, 5.5, m["T_image"])
	assert.Equal(t, 56.5, m["N_questions_on_outlines"])

	var back Vector
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, v, back)
}

func TestVectorJSON_MissingKey(t *testing.T) {
	var v Vector
	err := json.Unmarshal([]byte(`{"T_image": 1}`), &v)
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, TVideo, fe.Key)
}

func TestFormFromRoundTrip(t *testing.T) {
	var v Vector
	for i := range v {
		v[i] = float64(i) + 0.5
	}
	back, err := FormFrom(v).Vector()
	require.NoError(t, err)
	assert.Equal(t, v, back)
}
