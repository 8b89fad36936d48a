package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/civic-service-portal/internal/model"
)

type seqRandom struct {
	vals []int
	i    int
}

func (r *seqRandom) IntN(n int) int {
	v := r.vals[r.i%len(r.vals)] % n
	r.i++
	return v
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestNewReferenceFormat(t *testing.T) {
	now := time.UnixMilli(1_700_123_456_789).UTC()
	ref := NewReference(now, &seqRandom{vals: []int{42}})
	assert.Equal(t, "REQ-23456789-042", ref)
	assert.Regexp(t, model.ReferencePattern, ref)
}

func TestNewReferencePadsSmallValues(t *testing.T) {
	now := time.UnixMilli(200_000_005).UTC()
	assert.Equal(t, "REQ-00000005-000", NewReference(now, &seqRandom{vals: []int{0}}))
	assert.Equal(t, "REQ-00000005-999", NewReference(now, &seqRandom{vals: []int{999}}))
}

func TestNewReferenceSystemRandom(t *testing.T) {
	for i := 0; i < 200; i++ {
		assert.Regexp(t, model.ReferencePattern, NewReference(SystemClock{}.Now(), SystemRandom{}))
	}
}
