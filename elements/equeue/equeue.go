// Package equeue implements EQueue: an element that hands packets to a
// remote peer over HTTP instead of an in-process port, and symmetrically
// receives packets a remote peer sends it and re-injects them into the
// local graph through its own output port.
//
// Grounded on transport/api.go's Stream/Obj/ObjHdr split (header plus
// opaque payload, async completion callback) and the
// workCh-to-wire-frame path it implies, generalized from aistore's
// object-stream semantics to single packets. The wire encoding uses
// github.com/tinylib/msgp's low-level Writer/Reader primitives directly
// (WriteArrayHeader/WriteBytes, no generated Encodable) since a frame
// here is just (sender ID, opcode, flow key, payload) - the same shape
// lso.go's msgp.NewWriterBuf/EncodeMsg pair uses for a generated type,
// minus the code generation that type enjoys. Payloads are
// github.com/pierrec/lz4/v3-compressed before transmission, as
// cmn/archive/write.go already does for archive members. Transport is
// github.com/valyala/fasthttp, a pack dependency with no in-process
// analogue elsewhere in this tree.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package equeue

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"net"

	"github.com/pierrec/lz4/v3"
	"github.com/tinylib/msgp/msgp"
	"github.com/valyala/fasthttp"

	"github.com/clickrt/corepath/cmn/cos"
	"github.com/clickrt/corepath/cmn/nlog"
	"github.com/clickrt/corepath/element"
	"github.com/clickrt/corepath/packet"
	"github.com/clickrt/corepath/stats"
)

func init() {
	element.Register(&element.Class{
		Name:   "EQueue",
		NPorts: func(element.Args) (int, int, error) { return 1, 1, nil },
		New:    func() element.Element { return &EQueue{} },
	})
}

// Frame is the wire shape of one packet crossing the process boundary:
// sender ID, opcode (peer-defined, e.g. data vs. control), the flow key
// carried in the packet's aggregate annotation, and the raw payload.
type Frame struct {
	SID     string
	Opcode  int
	Key     uint64
	Payload []byte
}

func encodeFrame(w io.Writer, f Frame) error {
	mw := msgp.NewWriter(w)
	if err := mw.WriteArrayHeader(4); err != nil {
		return err
	}
	if err := mw.WriteString(f.SID); err != nil {
		return err
	}
	if err := mw.WriteInt(f.Opcode); err != nil {
		return err
	}
	if err := mw.WriteUint64(f.Key); err != nil {
		return err
	}
	if err := mw.WriteBytes(f.Payload); err != nil {
		return err
	}
	return mw.Flush()
}

func decodeFrame(r io.Reader) (Frame, error) {
	var f Frame
	mr := msgp.NewReader(r)
	n, err := mr.ReadArrayHeader()
	if err != nil {
		return f, err
	}
	if n != 4 {
		return f, cos.NewFatalError(errBadFrame)
	}
	if f.SID, err = mr.ReadString(); err != nil {
		return f, err
	}
	if f.Opcode, err = mr.ReadInt(); err != nil {
		return f, err
	}
	if f.Key, err = mr.ReadUint64(); err != nil {
		return f, err
	}
	if f.Payload, err = mr.ReadBytes(nil); err != nil {
		return f, err
	}
	return f, nil
}

// EQueue bridges one output+one input port to a remote peer over HTTP.
type EQueue struct {
	element.Base

	RemoteURL string // peer's ingest URL; empty disables the send side
	ListenOn  string // local listen address; empty disables the receive side
	SID       string

	client *fasthttp.Client
	ln     net.Listener
	tracks *stats.Tracker
}

var errBadFrame = errors.New("equeue: malformed frame")

func (q *EQueue) Configure(args element.Args) error {
	if len(args.Raw) > 0 {
		q.RemoteURL = args.Raw[0]
	}
	if len(args.Raw) > 1 {
		q.ListenOn = args.Raw[1]
	}
	if len(args.Raw) > 2 {
		q.SID = args.Raw[2]
	} else {
		q.SID = args.Name
	}
	q.tracks = stats.NewTracker(args.Name)
	return nil
}

func (q *EQueue) Initialize() error {
	if q.RemoteURL != "" {
		q.client = &fasthttp.Client{Name: "equeue/" + q.SID}
	}
	if q.ListenOn == "" {
		return nil
	}
	ln, err := net.Listen("tcp", q.ListenOn)
	if err != nil {
		return cos.NewInitError(q.Name(), err)
	}
	q.ln = ln
	srv := &fasthttp.Server{Handler: q.handle}
	go func() {
		if err := srv.Serve(ln); err != nil {
			nlog.Warningf("equeue %s: serve stopped: %v", q.Name(), err)
		}
	}()
	return nil
}

func (q *EQueue) Cleanup() {
	if q.ln != nil {
		q.ln.Close()
	}
}

// Push compresses p's payload into a Frame and POSTs it to RemoteURL.
func (q *EQueue) Push(_ int, p *packet.Packet) {
	defer p.Free()
	if q.client == nil {
		q.tracks.IncDrops()
		return
	}

	var compressed bytes.Buffer
	zw := lz4.NewWriter(&compressed)
	if _, err := zw.Write(p.Data()); err != nil {
		q.tracks.IncDrops()
		return
	}
	if err := zw.Close(); err != nil {
		q.tracks.IncDrops()
		return
	}

	var frame bytes.Buffer
	key := readAggregateKey(p)
	if err := encodeFrame(&frame, Frame{SID: q.SID, Key: key, Payload: compressed.Bytes()}); err != nil {
		q.tracks.IncDrops()
		return
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(q.RemoteURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetBody(frame.Bytes())

	if err := q.client.Do(req, resp); err != nil {
		q.tracks.IncDrops()
		return
	}
	q.tracks.IncPackets()
}

// handle decodes an inbound frame and re-emits it as a packet on output 0.
func (q *EQueue) handle(ctx *fasthttp.RequestCtx) {
	frame, err := decodeFrame(bytes.NewReader(ctx.PostBody()))
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		q.tracks.IncDrops()
		return
	}

	zr := lz4.NewReader(bytes.NewReader(frame.Payload))
	var decompressed bytes.Buffer
	if _, err := io.Copy(&decompressed, zr); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		q.tracks.IncDrops()
		return
	}

	p := packet.Make(decompressed.Len(), nil)
	copy(p.Data(), decompressed.Bytes())
	writeAggregateKey(p, frame.Key)

	q.tracks.IncPackets()
	if err := q.Emit(0, p); err != nil {
		q.tracks.IncDrops()
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
}

func readAggregateKey(p *packet.Packet) uint64 {
	a := p.Annot()
	return uint64(binary.BigEndian.Uint32(a[packet.AnnotAggregate : packet.AnnotAggregate+4]))
}

func writeAggregateKey(p *packet.Packet, key uint64) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(key))
	p.WriteAnnot(packet.AnnotAggregate, b[:])
}
