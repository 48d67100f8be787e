package blockchain

import "fmt"

// Fault is the unrecoverable error raised by Throw. It travels as a panic
// until the host running the invocation catches it.
type Fault struct {
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("contract fault: %s", f.Message)
}

// Catch runs fn and returns the Fault it threw, if any. Other panics pass through.
func Catch(fn func()) (fault *Fault) {
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*Fault)
			if !ok {
				panic(r)
			}
			fault = f
		}
	}()
	fn()
	return nil
}
