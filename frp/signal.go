package frp

// Signal is a pull-based value.
type Signal[T any] struct {
	sample func(tx *Transaction) T
}

// Sample reads the current value in a fresh transaction.
func (s *Signal[T]) Sample() (v T) {
	commit(func(tx *Transaction) {
		v = s.sample(tx)
	})
	return
}

func Constant[T any](v T) *Signal[T] {
	return &Signal[T]{sample: func(*Transaction) T { return v }}
}

// Lift wraps f as a signal evaluated at most once per transaction.
func Lift[T any](f func() T) *Signal[T] {
	s := &Signal[T]{}
	s.sample = func(tx *Transaction) T {
		if v, ok := tx.load(s); ok {
			return v.(T)
		}
		v := f()
		tx.store(s, v)
		return v
	}
	return s
}

func Map[A, B any](s *Signal[A], f func(A) B) *Signal[B] {
	return &Signal[B]{sample: func(tx *Transaction) B {
		return f(s.sample(tx))
	}}
}

// Fold accumulates events of st. The new value becomes visible once the
// transaction carrying the event commits; samples taken inside that
// transaction still see the previous value.
func Fold[A, B any](st *Stream[A], initial B, f func(B, A) B) *Signal[B] {
	value := initial
	s := &Signal[B]{}
	s.sample = func(*Transaction) B {
		return value
	}
	st.listen(func(tx *Transaction, a A) {
		pending, ok := tx.load(s)
		base := value
		if ok {
			base = pending.(B)
		}
		tx.store(s, f(base, a))
		if !ok {
			tx.onCommit(func() {
				v, _ := tx.load(s)
				value = v.(B)
			})
		}
	})
	return s
}

// Hold keeps the latest event of st.
func Hold[T any](st *Stream[T], initial T) *Signal[T] {
	return Fold(st, initial, func(_ T, v T) T { return v })
}
