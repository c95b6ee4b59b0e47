package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBOM() []OutputRow {
	return []OutputRow{
		{Item: "1", Code: "A9F74210", Model: "iC60N", Quantity: 1, Rule: "breaker"},
		{Item: "2", Code: "NSYS3D", Quantity: 1, Rule: "enclosure", Alternative: 1},
	}
}

func TestResultDigestDeterminism(t *testing.T) {
	bom := sampleBOM()
	totals := Totals{CounterPhase: 6, CounterGround: 2}

	d1, err := ResultDigest(bom, totals)
	require.NoError(t, err)
	d2, err := ResultDigest(bom, totals)
	require.NoError(t, err)

	assert.Equal(t, d1, d2, "ResultDigest must be deterministic")
	assert.Len(t, d1, 64, "SHA-256 hex is 64 characters")
}

func TestResultDigestChangesWithContent(t *testing.T) {
	base := MustResultDigest(sampleBOM(), Totals{})

	changed := sampleBOM()
	changed[0].Quantity = 2
	assert.NotEqual(t, base, MustResultDigest(changed, Totals{}), "quantity is part of identity")

	reordered := sampleBOM()
	reordered[0], reordered[1] = reordered[1], reordered[0]
	assert.NotEqual(t, base, MustResultDigest(reordered, Totals{}), "row order is part of identity")

	assert.NotEqual(t, base, MustResultDigest(sampleBOM(), Totals{CounterPhase: 1}))
}

func TestResultDigestNilTotalsEqualsEmpty(t *testing.T) {
	assert.Equal(t, MustResultDigest(nil, nil), MustResultDigest([]OutputRow{}, Totals{}))
}

func TestDomainSeparationPreventsCrossTypeCollision(t *testing.T) {
	payload := map[string]any{"k": "v"}

	a, err := Digest(DomainCatalog, payload)
	require.NoError(t, err)
	b, err := Digest(DomainAnswers, payload)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHashWithDomainNullSeparator(t *testing.T) {
	// "ab" + "c" must not collide with "a" + "bc"
	h1 := hashWithDomain("ab", []byte("c"))
	h2 := hashWithDomain("a", []byte("bc"))
	assert.NotEqual(t, h1, h2)
}

func TestDigestErrorHandling(t *testing.T) {
	_, err := Digest(DomainAnswers, map[string]any{"bad": 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), DomainAnswers)
}

func TestDomainConstants(t *testing.T) {
	assert.Equal(t, "partsel/result/v1", DomainResult)
	assert.Equal(t, "partsel/catalog/v1", DomainCatalog)
	assert.Equal(t, "partsel/answers/v1", DomainAnswers)
}
