package ringbuf

// RingBuf is a FIFO with a fixed capacity.
// PushBack on a full RingBuf evicts the element at the front.
type RingBuf[T any] struct {
	buf []T
	// head and tail count pushes and evictions, they only increase.
	head, tail int
}

func New[T any](n int) RingBuf[T] {
	if n < 1 {
		panic("ringbuf: capacity must be positive")
	}
	return RingBuf[T]{buf: make([]T, n)}
}

func (rb *RingBuf[T]) MaxLen() int {
	return len(rb.buf)
}

func (rb *RingBuf[T]) PushBack(val T) {
	rb.buf[rb.tail%len(rb.buf)] = val
	rb.tail++
	if rb.Len() > len(rb.buf) {
		rb.head++
	}
}

func (rb *RingBuf[T]) PopFront() T {
	val := rb.At(0)
	var zero T
	rb.buf[rb.head%len(rb.buf)] = zero
	rb.head++
	return val
}

// At returns the i-th element, counting from the front.
func (rb *RingBuf[T]) At(i int) T {
	if i < 0 || i >= rb.Len() {
		panic(i)
	}
	return rb.buf[(rb.head+i)%len(rb.buf)]
}

func (rb *RingBuf[T]) Len() int {
	return rb.tail - rb.head
}

// Dropped returns the number of elements which have left the front,
// either by PopFront or by being evicted.
func (rb *RingBuf[T]) Dropped() int {
	return rb.head
}

// AppendTo appends the elements, front first, to out.
func (rb *RingBuf[T]) AppendTo(out []T) []T {
	for i := 0; i < rb.Len(); i++ {
		out = append(out, rb.At(i))
	}
	return out
}
