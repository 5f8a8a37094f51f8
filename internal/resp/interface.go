package resp

type Reader interface {
	Read() (Value, error)
}

type Writer interface {
	Write(v Value) error
	Flush() error
}

// Executor runs one command. args holds every element of the command array, verb included
type Executor interface {
	Execute(args []Value) (Value, error)
}

// ExecutorFunc adapts a plain function to Executor
type ExecutorFunc func(args []Value) (Value, error)

func (f ExecutorFunc) Execute(args []Value) (Value, error) {
	return f(args)
}
