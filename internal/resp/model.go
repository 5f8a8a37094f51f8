package resp

// Type markers. The marker byte of a frame doubles as the Value tag
const (
	TypeSimpleString = '+'
	TypeError        = '-'
	TypeInteger      = ':'
	TypeBulkString   = '$'
	TypeArray        = '*'
	TypeNull         = '_'
	TypeBoolean      = '#'
	TypeDouble       = ','
	TypeBigNumber    = '('
	TypeBulkError    = '!'
	TypeMap          = '%'
	TypeSet          = '~'
)

// Value is one protocol frame. Type selects which of the payload fields is meaningful
type Value struct {
	String  []byte              // SimpleString, Error, BulkString, Double, BigNumber, BulkError
	Array   []Value             // Array
	Map     map[string]string   // Map
	Set     map[string]struct{} // Set
	Integer int64               // Integer
	Type    byte
	Boolean bool // Boolean
	IsNull  bool // For nil BulkString and nil Array
}

// Text returns the string payload of the value
func (v Value) Text() string {
	return string(v.String)
}
