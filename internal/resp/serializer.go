package resp

// SerializeCommand encodes a command the way clients send it: an array of bulk strings
func SerializeCommand(cmd string, args ...string) []byte {
	elements := make([]Value, 1+len(args))

	elements[0] = MakeBulkString(cmd)
	for i, arg := range args {
		elements[i+1] = MakeBulkString(arg)
	}

	return Marshal(MakeArray(elements))
}
