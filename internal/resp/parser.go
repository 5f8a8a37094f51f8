package resp

// Parser reads command frames and hands them to an Executor.
// It knows the command convention (an array whose first element is a bulk string)
// but nothing about which commands exist
type Parser struct {
	r Reader
}

// NewParser creates a Parser reading frames from r
func NewParser(r Reader) *Parser {
	return &Parser{r: r}
}

// Parse reads exactly one top-level frame and executes it.
// Read errors are returned unchanged; a frame that is not a command is a KindProtocol error
func (p *Parser) Parse(exec Executor) (Value, error) {
	v, err := p.r.Read()
	if err != nil {
		return Value{}, err
	}

	if v.Type != TypeArray || v.IsNull {
		return Value{}, protocolError(ErrNotArray)
	}

	if len(v.Array) == 0 {
		return Value{}, protocolError(ErrEmptyCommand)
	}

	if v.Array[0].Type != TypeBulkString || v.Array[0].IsNull {
		return Value{}, protocolError(ErrInvalidCommand)
	}

	return exec.Execute(v.Array)
}
