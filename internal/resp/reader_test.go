package resp_test

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/eternalApril/starlight/internal/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr error
	}{
		{
			name:    "Valid positive",
			input:   ":1000\r\n",
			want:    1000,
			wantErr: nil,
		},
		{
			name:    "Valid positive with +",
			input:   ":+1230\r\n",
			want:    1230,
			wantErr: nil,
		},
		{
			name:    "Valid negative",
			input:   ":-15\r\n",
			want:    -15,
			wantErr: nil,
		},
		{
			name:    "Valid zero",
			input:   ":0\r\n",
			want:    0,
			wantErr: nil,
		},
		{
			name:    "Invalid ending",
			input:   ":1000\n",
			want:    0,
			wantErr: resp.ErrInvalidEnding,
		},
		{
			name:    "Not a number",
			input:   ":12a\r\n",
			want:    0,
			wantErr: resp.ErrInvalidInteger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := resp.NewDecoder(strings.NewReader(tt.input))

			val, err := r.Read()

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Read() expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Errorf("Read() unexpected error %v", err)
			}

			if val.Type != resp.TypeInteger {
				t.Errorf("Read() type = %v, want %v", val.Type, resp.TypeInteger)
			}

			if val.Integer != tt.want {
				t.Errorf("Read() num = %v, want %v", val.Integer, tt.want)
			}
		})
	}
}

func TestDecoder_OneByteReads(t *testing.T) {
	input := "*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$5\r\nvalue\r\n+OK\r\n"
	d := resp.NewDecoder(iotest.OneByteReader(strings.NewReader(input)))

	v, err := d.Read()
	require.NoError(t, err)
	assert.Equal(t, resp.MakeArray([]resp.Value{
		resp.MakeBulkString("SET"),
		resp.MakeBulkString("key"),
		resp.MakeBulkString("value"),
	}), v)

	v, err = d.Read()
	require.NoError(t, err)
	assert.Equal(t, resp.MakeSimpleString("OK"), v)

	_, err = d.Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_Pipelined(t *testing.T) {
	input := string(resp.SerializeCommand("PING")) +
		string(resp.SerializeCommand("ECHO", "hey")) +
		string(resp.SerializeCommand("GET", "k"))

	d := resp.NewDecoder(strings.NewReader(input))

	var names []string
	for {
		v, err := d.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, v.Array[0].Text())
	}

	assert.Equal(t, []string{"PING", "ECHO", "GET"}, names)
	assert.Zero(t, d.Buffered())
}

func TestDecoder_RecoversAfterFrameError(t *testing.T) {
	d := resp.NewDecoder(&chunkReader{chunks: []string{
		"+OK\r:123\r\n",
		"*1\r\n$4\r\nPING\r\n",
	}})

	_, err := d.Read()
	require.Error(t, err)
	assert.ErrorIs(t, err, resp.ErrInvalidEnding)
	assert.Equal(t, resp.KindFrame, resp.KindOf(err))
	assert.True(t, resp.IsRecoverable(err))

	v, err := d.Read()
	require.NoError(t, err)
	assert.Equal(t, resp.MakeArray([]resp.Value{resp.MakeBulkString("PING")}), v)
}

func TestDecoder_UnexpectedEOF(t *testing.T) {
	d := resp.NewDecoder(strings.NewReader("*2\r\n$3\r\nGET\r\n"))

	_, err := d.Read()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.False(t, resp.IsRecoverable(err))
}

func TestDecoder_ReadError(t *testing.T) {
	d := resp.NewDecoder(iotest.ErrReader(io.ErrClosedPipe))

	_, err := d.Read()
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.False(t, resp.IsRecoverable(err))
}

func TestDecoder_ChunkedLargeArray(t *testing.T) {
	const n = 200_000

	var sb strings.Builder
	sb.WriteString("*200000\r\n")
	for i := 0; i < n; i++ {
		sb.WriteString("$1\r\nx\r\n")
	}
	sb.WriteString("+OK\r\n")

	d := resp.NewDecoder(&limitedReader{r: strings.NewReader(sb.String()), n: 4096})

	// the partial array is walked once, not again after every chunk
	start := time.Now()
	v, err := d.Read()
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Len(t, v.Array, n)
	assert.Equal(t, resp.MakeBulkString("x"), v.Array[n-1])
	assert.Less(t, elapsed, 3*time.Second)

	v, err = d.Read()
	require.NoError(t, err)
	assert.Equal(t, resp.MakeSimpleString("OK"), v)
}

func TestDecoder_NestedArraysAcrossReads(t *testing.T) {
	input := "*2\r\n*2\r\n$1\r\na\r\n*0\r\n*1\r\n$-1\r\n:5\r\n"
	d := resp.NewDecoder(iotest.OneByteReader(strings.NewReader(input)))

	v, err := d.Read()
	require.NoError(t, err)
	assert.Equal(t, resp.MakeArray([]resp.Value{
		resp.MakeArray([]resp.Value{
			resp.MakeBulkString("a"),
			resp.MakeArray([]resp.Value{}),
		}),
		resp.MakeArray([]resp.Value{resp.MakeNilBulkString()}),
	}), v)

	v, err = d.Read()
	require.NoError(t, err)
	assert.Equal(t, resp.MakeInteger(5), v)
}

func TestDecoder_NestingTooDeep(t *testing.T) {
	d := resp.NewDecoder(&chunkReader{chunks: []string{
		strings.Repeat("*1\r\n", 1000) + ":1\r\n",
		"*1\r\n$4\r\nPING\r\n",
	}})

	_, err := d.Read()
	require.Error(t, err)
	assert.ErrorIs(t, err, resp.ErrLimitExceeded)
	assert.True(t, resp.IsRecoverable(err))

	v, err := d.Read()
	require.NoError(t, err)
	assert.Equal(t, resp.MakeArray([]resp.Value{resp.MakeBulkString("PING")}), v)
}

func TestDecoder_InvalidPayloadInCompleteFrame(t *testing.T) {
	d := resp.NewDecoder(iotest.OneByteReader(strings.NewReader("*2\r\n:12a\r\n:1\r\n+OK\r\n")))

	_, err := d.Read()
	assert.ErrorIs(t, err, resp.ErrInvalidInteger)
}

// limitedReader returns at most n bytes per Read call
type limitedReader struct {
	r io.Reader
	n int
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if len(p) > l.n {
		p = p[:l.n]
	}
	return l.r.Read(p)
}

// chunkReader returns one chunk per Read call
type chunkReader struct {
	chunks []string
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]
	if c.chunks[0] == "" {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}
