package eventqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrdersByTime(t *testing.T) {
	q := New()
	q.Schedule(30, BlockAttempt, nil)
	q.Schedule(10, BlockAttempt, nil)
	q.Schedule(20, BlockAttempt, nil)

	var order []int64
	for {
		ev, ok := q.Pop()
		if !ok {
			break
		}
		order = append(order, ev.When)
	}
	assert.Equal(t, []int64{10, 20, 30}, order)
}

func TestTiesBrokenByInsertionOrder(t *testing.T) {
	q := New()
	q.Schedule(5, ValidatorFail, "first")
	q.Schedule(5, ValidatorFail, "second")
	q.Schedule(5, ValidatorFail, "third")

	ev1, ok := q.Pop()
	require.True(t, ok)
	ev2, ok := q.Pop()
	require.True(t, ok)
	ev3, ok := q.Pop()
	require.True(t, ok)

	assert.Equal(t, "first", ev1.Payload)
	assert.Equal(t, "second", ev2.Payload)
	assert.Equal(t, "third", ev3.Payload)
}

func TestPopEmpty(t *testing.T) {
	q := New()
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestLen(t *testing.T) {
	q := New()
	assert.Equal(t, 0, q.Len())
	q.Schedule(1, Progress, nil)
	assert.Equal(t, 1, q.Len())
	q.Pop()
	assert.Equal(t, 0, q.Len())
}
