package resp

import (
	"strconv"
)

// MakeSimpleString construct SimpleString Value from string
func MakeSimpleString(s string) Value {
	return Value{
		Type:   TypeSimpleString,
		String: []byte(s),
	}
}

// MakeError construct Error Value from string
func MakeError(s string) Value {
	return Value{
		Type:   TypeError,
		String: []byte(s),
	}
}

// MakeErrorFrom converts err into an Error Value in the "ERR <message>" form clients expect
func MakeErrorFrom(err error) Value {
	if k := KindOf(err); k == KindFrame || k == KindProtocol {
		return MakeError("ERR Protocol error: " + err.Error())
	}
	return MakeError("ERR " + err.Error())
}

// MakeBulkString construct BulkString Value from string
func MakeBulkString(s string) Value {
	return Value{
		Type:   TypeBulkString,
		String: []byte(s),
	}
}

// MakeNilBulkString construct nil BulkSting Value
func MakeNilBulkString() Value {
	return Value{
		Type:   TypeBulkString,
		IsNull: true,
	}
}

// MakeInteger construct Integer Value from int64
func MakeInteger(n int64) Value {
	return Value{
		Type:    TypeInteger,
		Integer: n,
	}
}

// MakeArray creates a standard RESP array containing the provided elements
func MakeArray(values []Value) Value {
	return Value{
		Type:  TypeArray,
		Array: values,
	}
}

// MakeNilArray construct nil Array Value
func MakeNilArray() Value {
	return Value{
		Type:   TypeArray,
		IsNull: true,
	}
}

// MakeNull construct the RESP3 Null Value
func MakeNull() Value {
	return Value{Type: TypeNull}
}

// MakeBoolean construct Boolean Value
func MakeBoolean(b bool) Value {
	return Value{
		Type:    TypeBoolean,
		Boolean: b,
	}
}

// MakeDouble construct Double Value, formatted with the shortest exact representation
func MakeDouble(f float64) Value {
	return Value{
		Type:   TypeDouble,
		String: strconv.AppendFloat(nil, f, 'g', -1, 64),
	}
}

// MakeBigNumber construct BigNumber Value from its decimal digits
func MakeBigNumber(digits string) Value {
	return Value{
		Type:   TypeBigNumber,
		String: []byte(digits),
	}
}

// MakeBulkError construct BulkError Value from string
func MakeBulkError(s string) Value {
	return Value{
		Type:   TypeBulkError,
		String: []byte(s),
	}
}

// MakeMap construct Map Value. The map is not copied
func MakeMap(m map[string]string) Value {
	return Value{
		Type: TypeMap,
		Map:  m,
	}
}

// MakeSet construct Set Value, duplicates collapse into one member
func MakeSet(members ...string) Value {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	return Value{
		Type: TypeSet,
		Set:  set,
	}
}
