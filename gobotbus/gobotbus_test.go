package gobotbus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/spectral/as726x"
)

type fakeConn struct {
	written [][]byte
	reads   [][]byte
	err     error
}

func (f *fakeConn) Write(data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) Read(data []byte) error {
	if f.err != nil {
		return f.err
	}
	if len(f.reads) == 0 {
		return errors.New("nothing to read")
	}
	copy(data, f.reads[0])
	f.reads = f.reads[1:]
	return nil
}

func TestDevice_Transfer(t *testing.T) {
	conn := &fakeConn{reads: [][]byte{{0x02}}}
	d := NewDevice(conn)

	r, err := d.Transfer(context.Background(), []byte{0x00}, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, r)
	assert.Equal(t, [][]byte{{0x00}}, conn.written)
}

func TestDevice_Send(t *testing.T) {
	conn := &fakeConn{}
	d := NewDevice(conn)

	require.NoError(t, d.Send(context.Background(), []byte{0x01, 0x87}))
	assert.Equal(t, [][]byte{{0x01, 0x87}}, conn.written)
}

func TestDevice_Errors(t *testing.T) {
	failure := errors.New("remote I/O error")
	d := NewDevice(&fakeConn{err: failure})

	_, err := d.Transfer(context.Background(), []byte{0x00}, 1)
	assert.ErrorIs(t, err, failure)
	assert.ErrorIs(t, d.Send(context.Background(), []byte{0x01, 0x00}), failure)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Send(ctx, []byte{0x01, 0x00}), context.Canceled)
}

func TestDevice_DrivesSensor(t *testing.T) {
	conn := &fakeConn{reads: [][]byte{
		{0x00}, // status
		{0x01}, // status, RX_VALID
		{0x3E}, // hardware version
	}}
	sensor := as726x.New(NewDevice(conn), as726x.WithPollInterval(0))

	v, err := sensor.HardwareVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, byte(0x3E), v)
	assert.Equal(t, [][]byte{{0x00}, {0x01, 0x01}, {0x00}, {0x02}}, conn.written)
}
