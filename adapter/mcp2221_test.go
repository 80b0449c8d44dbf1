package adapter

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/spectral"
)

// fakeHID answers each request report with the next scripted response.
type fakeHID struct {
	requests  [][]byte
	responses [][]byte
	closed    int
}

func (f *fakeHID) Write(p []byte) (int, error) {
	f.requests = append(f.requests, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeHID) Read(p []byte) (int, error) {
	if len(f.responses) == 0 {
		return 0, errors.New("no response")
	}
	copy(p, f.responses[0])
	f.responses = f.responses[1:]
	return reportSize, nil
}

func (f *fakeHID) Close() error {
	f.closed++
	return nil
}

func report(b ...byte) []byte {
	r := make([]byte, reportSize)
	copy(r, b)
	return r
}

func newTestAdapter(f *fakeHID) *MCP2221 {
	return NewMCP2221(
		WithOpener(func() (io.ReadWriteCloser, error) { return f, nil }),
		WithResponseWait(0),
	)
}

func TestMCP2221_WriteToAddr(t *testing.T) {
	f := &fakeHID{responses: [][]byte{report(0x90, 0x00)}}
	d := newTestAdapter(f)

	err := d.WriteToAddr(context.Background(), 0x49, []byte{0x01, 0x85})
	require.NoError(t, err)
	require.Len(t, f.requests, 1)
	assert.Equal(t, []byte{0x90, 0x02, 0x00, 0x92, 0x01, 0x85}, f.requests[0][:6])
	assert.Equal(t, 1, f.closed)
}

func TestMCP2221_WriteBusy(t *testing.T) {
	f := &fakeHID{responses: [][]byte{report(0x90, 0x01)}}
	d := newTestAdapter(f)

	err := d.WriteToAddr(context.Background(), 0x49, []byte{0x00})
	assert.ErrorIs(t, err, spectral.ErrBusBusy)
}

func TestMCP2221_ReadFromAddr(t *testing.T) {
	f := &fakeHID{responses: [][]byte{
		report(0x91, 0x00),
		report(0x40, 0x00, 0x00, 0x01, 0x3F),
	}}
	d := newTestAdapter(f)

	buf := make([]byte, 1)
	err := d.ReadFromAddr(context.Background(), 0x49, buf)
	require.NoError(t, err)
	assert.Equal(t, byte(0x3F), buf[0])
	require.Len(t, f.requests, 2)
	assert.Equal(t, []byte{0x91, 0x01, 0x00, 0x93}, f.requests[0][:4])
	assert.Equal(t, byte(0x40), f.requests[1][0])
}

func TestMCP2221_ReadErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"engine error", report(0x40, 0x41)},
		{"wrong size", report(0x40, 0x00, 0x00, 0x02)},
		{"invalid size", report(0x40, 0x00, 0x00, 127)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeHID{responses: [][]byte{report(0x91, 0x00), tt.data}}
			d := newTestAdapter(f)

			err := d.ReadFromAddr(context.Background(), 0x49, make([]byte, 1))
			assert.Error(t, err)
		})
	}
}

func TestMCP2221_Status(t *testing.T) {
	resp := report(0x10)
	resp[9], resp[10] = 0x02, 0x00
	resp[11], resp[12] = 0x01, 0x00
	resp[13] = 4
	resp[14] = 0x76
	resp[15] = 0x10
	resp[16], resp[17] = 0x92, 0x00
	resp[25] = 1
	f := &fakeHID{responses: [][]byte{resp}}
	d := newTestAdapter(f)

	status, err := d.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &MCP2221Status{
		I2CDataBufferCounter:   4,
		I2CSpeedDivider:        0x76,
		I2CTimeout:             0x10,
		CurrentAddress:         "9200",
		LastWriteRequestedSize: 2,
		LastWriteSentSize:      1,
		ReadPending:            1,
	}, status)
}

func TestMCP2221_ReleaseBus(t *testing.T) {
	f := &fakeHID{responses: [][]byte{report(0x10)}}
	d := newTestAdapter(f)

	require.NoError(t, d.Release(context.Background()))
	require.Len(t, f.requests, 1)
	assert.Equal(t, []byte{0x10, 0x00, 0x10}, f.requests[0][:3])
}

func TestMCP2221_OpenFailure(t *testing.T) {
	d := NewMCP2221(WithOpener(func() (io.ReadWriteCloser, error) { return nil, ErrDeviceNotFound }))

	err := d.WriteToAddr(context.Background(), 0x49, []byte{0x00})
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestMCP2221_RetriedThroughTransport(t *testing.T) {
	f := &fakeHID{responses: [][]byte{
		report(0x90, 0x01), // busy
		report(0x10),       // release
		report(0x90, 0x00),
	}}
	d := newTestAdapter(f)
	tr := spectral.NewAddressedTransport(d, 0x49)

	require.NoError(t, tr.Send(context.Background(), []byte{0x01, 0x85}))
	require.Len(t, f.requests, 3)
	assert.Equal(t, byte(0x10), f.requests[1][0])
}
