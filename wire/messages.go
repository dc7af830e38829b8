package wire

// This file defines the payload shape carried inside each Frame.Payload for
// the RPC methods and events named in SPEC_FULL.md §6. Every message type
// gets an Encode method and a matching Decode<Type> function; pairs are
// intentionally symmetric so PipelineRpcProxy (client) and the session
// module dispatcher (server) share the same codec.

// CreateSessionRequest carries the video requirements for a new session.
type CreateSessionRequest struct {
	MaxWidth  int
	MaxHeight int
}

func (m CreateSessionRequest) Encode() []byte {
	w := &byteWriter{}
	w.varint(uint64(m.MaxWidth))
	w.varint(uint64(m.MaxHeight))
	return w.bytesOut()
}

func DecodeCreateSessionRequest(b []byte) (CreateSessionRequest, error) {
	r := newByteReader(b)
	var m CreateSessionRequest
	w, err := r.varint()
	if err != nil {
		return m, err
	}
	h, err := r.varint()
	if err != nil {
		return m, err
	}
	m.MaxWidth, m.MaxHeight = int(w), int(h)
	return m, nil
}

// CreateSessionReply carries the newly-assigned session id, or ok=false if
// no slot was available.
type CreateSessionReply struct {
	SessionID int32
	OK        bool
}

func (m CreateSessionReply) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.SessionID))
	w.byte(boolByte(m.OK))
	return w.bytesOut()
}

func DecodeCreateSessionReply(b []byte) (CreateSessionReply, error) {
	r := newByteReader(b)
	var m CreateSessionReply
	id, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	ok, err := r.readByte()
	if err != nil {
		return m, err
	}
	m.SessionID = int32(id)
	m.OK = ok != 0
	return m, nil
}

// SessionIDRequest is shared by every method that only needs a session id:
// DestroySession, Play, Pause, Stop, GetPosition, RenderFrame,
// AllSourcesAttached.
type SessionIDRequest struct {
	SessionID int32
}

func (m SessionIDRequest) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.SessionID))
	return w.bytesOut()
}

func DecodeSessionIDRequest(b []byte) (SessionIDRequest, error) {
	r := newByteReader(b)
	var m SessionIDRequest
	id, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	m.SessionID = int32(id)
	return m, nil
}

// BoolReply is shared by every method whose only result is success/failure:
// DestroySession, Play, Pause, Stop, SetPosition, SetPlaybackRate,
// SetVideoWindow, HaveData, RenderFrame, RemoveSource, AllSourcesAttached.
type BoolReply struct {
	OK bool
}

func (m BoolReply) Encode() []byte {
	return []byte{boolByte(m.OK)}
}

func DecodeBoolReply(b []byte) (BoolReply, error) {
	r := newByteReader(b)
	v, err := r.readByte()
	if err != nil {
		return BoolReply{}, err
	}
	return BoolReply{OK: v != 0}, nil
}

// LoadRequest carries the parameters of MediaPipelineModule.load.
type LoadRequest struct {
	SessionID int32
	Type      LoadType
	MimeType  string
	URL       string
}

func (m LoadRequest) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.SessionID))
	w.varint(ToWireLoadType(m.Type))
	w.string(m.MimeType)
	w.string(m.URL)
	return w.bytesOut()
}

func DecodeLoadRequest(b []byte) (LoadRequest, error) {
	r := newByteReader(b)
	var m LoadRequest
	id, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	t, err := r.varint()
	if err != nil {
		return m, err
	}
	mime, err := r.string()
	if err != nil {
		return m, err
	}
	url, err := r.string()
	if err != nil {
		return m, err
	}
	m.SessionID, m.Type, m.MimeType, m.URL = int32(id), FromWireLoadType(t), mime, url
	return m, nil
}

// AudioConfig mirrors mediasource.AudioConfig for wire transport.
type AudioConfig struct {
	Channels            int
	SampleRate          int
	CodecSpecificConfig []byte
}

// AttachSourceRequest carries MediaPipelineModule.attachSource's parameters.
// Per spec.md §9 Open Question (a), both mimeType and (when present) a raw
// caps string may travel together; the richer variant (Caps) wins when set.
type AttachSourceRequest struct {
	SessionID        int32
	MediaType        MediaSourceType
	MimeType         string
	Caps             string
	Audio            *AudioConfig
	CodecData        []byte
	SegmentAlignment SegmentAlignment
	StreamFormat     StreamFormat
}

func (m AttachSourceRequest) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.SessionID))
	w.varint(ToWireMediaSourceType(m.MediaType))
	w.string(m.MimeType)
	w.string(m.Caps)
	w.byte(boolByte(m.Audio != nil))
	if m.Audio != nil {
		w.varint(uint64(m.Audio.Channels))
		w.varint(uint64(m.Audio.SampleRate))
		w.bytes(m.Audio.CodecSpecificConfig)
	}
	w.bytes(m.CodecData)
	w.varint(ToWireSegmentAlignment(m.SegmentAlignment))
	w.varint(ToWireStreamFormat(m.StreamFormat))
	return w.bytesOut()
}

func DecodeAttachSourceRequest(b []byte) (AttachSourceRequest, error) {
	r := newByteReader(b)
	var m AttachSourceRequest
	id, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	mt, err := r.varint()
	if err != nil {
		return m, err
	}
	mime, err := r.string()
	if err != nil {
		return m, err
	}
	caps, err := r.string()
	if err != nil {
		return m, err
	}
	hasAudio, err := r.readByte()
	if err != nil {
		return m, err
	}
	if hasAudio != 0 {
		ch, err := r.varint()
		if err != nil {
			return m, err
		}
		sr, err := r.varint()
		if err != nil {
			return m, err
		}
		csc, err := r.bytes()
		if err != nil {
			return m, err
		}
		m.Audio = &AudioConfig{Channels: int(ch), SampleRate: int(sr), CodecSpecificConfig: append([]byte(nil), csc...)}
	}
	codecData, err := r.bytes()
	if err != nil {
		return m, err
	}
	align, err := r.varint()
	if err != nil {
		return m, err
	}
	format, err := r.varint()
	if err != nil {
		return m, err
	}
	m.SessionID = int32(id)
	m.MediaType = FromWireMediaSourceType(mt)
	m.MimeType = mime
	m.Caps = caps
	m.CodecData = append([]byte(nil), codecData...)
	m.SegmentAlignment = FromWireSegmentAlignment(align)
	m.StreamFormat = FromWireStreamFormat(format)
	return m, nil
}

// AttachSourceReply carries the server-assigned source id.
type AttachSourceReply struct {
	SourceID int32
	OK       bool
}

func (m AttachSourceReply) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.SourceID))
	w.byte(boolByte(m.OK))
	return w.bytesOut()
}

func DecodeAttachSourceReply(b []byte) (AttachSourceReply, error) {
	r := newByteReader(b)
	var m AttachSourceReply
	id, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	ok, err := r.readByte()
	if err != nil {
		return m, err
	}
	m.SourceID, m.OK = int32(id), ok != 0
	return m, nil
}

// RemoveSourceRequest carries MediaPipelineModule.removeSource's parameters.
type RemoveSourceRequest struct {
	SessionID int32
	SourceID  int32
}

func (m RemoveSourceRequest) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.SessionID))
	w.signedVarint(int64(m.SourceID))
	return w.bytesOut()
}

func DecodeRemoveSourceRequest(b []byte) (RemoveSourceRequest, error) {
	r := newByteReader(b)
	var m RemoveSourceRequest
	sid, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	src, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	m.SessionID, m.SourceID = int32(sid), int32(src)
	return m, nil
}

// SetPositionRequest carries MediaPipelineModule.setPosition's parameters.
type SetPositionRequest struct {
	SessionID  int32
	PositionNs int64
}

func (m SetPositionRequest) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.SessionID))
	w.signedVarint(m.PositionNs)
	return w.bytesOut()
}

func DecodeSetPositionRequest(b []byte) (SetPositionRequest, error) {
	r := newByteReader(b)
	var m SetPositionRequest
	sid, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	pos, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	m.SessionID, m.PositionNs = int32(sid), pos
	return m, nil
}

// GetPositionReply carries the server's last-known playback position.
type GetPositionReply struct {
	PositionNs int64
	OK         bool
}

func (m GetPositionReply) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(m.PositionNs)
	w.byte(boolByte(m.OK))
	return w.bytesOut()
}

func DecodeGetPositionReply(b []byte) (GetPositionReply, error) {
	r := newByteReader(b)
	var m GetPositionReply
	pos, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	ok, err := r.readByte()
	if err != nil {
		return m, err
	}
	m.PositionNs, m.OK = pos, ok != 0
	return m, nil
}

// SetPlaybackRateRequest carries MediaPipelineModule.setPlaybackRate's parameters.
type SetPlaybackRateRequest struct {
	SessionID int32
	Rate      float64
}

func (m SetPlaybackRateRequest) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.SessionID))
	w.float64(m.Rate)
	return w.bytesOut()
}

func DecodeSetPlaybackRateRequest(b []byte) (SetPlaybackRateRequest, error) {
	r := newByteReader(b)
	var m SetPlaybackRateRequest
	sid, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	rate, err := r.float64()
	if err != nil {
		return m, err
	}
	m.SessionID, m.Rate = int32(sid), rate
	return m, nil
}

// SetVideoWindowRequest carries MediaPipelineModule.setVideoWindow's parameters.
type SetVideoWindowRequest struct {
	SessionID           int32
	X, Y, Width, Height int32
}

func (m SetVideoWindowRequest) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.SessionID))
	w.signedVarint(int64(m.X))
	w.signedVarint(int64(m.Y))
	w.signedVarint(int64(m.Width))
	w.signedVarint(int64(m.Height))
	return w.bytesOut()
}

func DecodeSetVideoWindowRequest(b []byte) (SetVideoWindowRequest, error) {
	r := newByteReader(b)
	var m SetVideoWindowRequest
	vals := make([]int64, 5)
	for i := range vals {
		v, err := r.signedVarint()
		if err != nil {
			return m, err
		}
		vals[i] = v
	}
	m.SessionID, m.X, m.Y, m.Width, m.Height = int32(vals[0]), int32(vals[1]), int32(vals[2]), int32(vals[3]), int32(vals[4])
	return m, nil
}

// HaveDataRequest carries MediaPipelineModule.haveData's parameters.
type HaveDataRequest struct {
	SessionID int32
	Status    MediaSourceStatus
	NumFrames uint32
	RequestID uint32
}

func (m HaveDataRequest) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.SessionID))
	w.varint(ToWireMediaSourceStatus(m.Status))
	w.varint(uint64(m.NumFrames))
	w.varint(uint64(m.RequestID))
	return w.bytesOut()
}

func DecodeHaveDataRequest(b []byte) (HaveDataRequest, error) {
	r := newByteReader(b)
	var m HaveDataRequest
	sid, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	status, err := r.varint()
	if err != nil {
		return m, err
	}
	frames, err := r.varint()
	if err != nil {
		return m, err
	}
	reqID, err := r.varint()
	if err != nil {
		return m, err
	}
	m.SessionID = int32(sid)
	m.Status = FromWireMediaSourceStatus(status)
	m.NumFrames = uint32(frames)
	m.RequestID = uint32(reqID)
	return m, nil
}

// ShmInfo mirrors the NeedDataRequest.shmInfo fields from spec.md §3.
type ShmInfo struct {
	MaxMetadataBytes uint32
	MetadataOffset   uint32
	MediaDataOffset  uint32
	MaxMediaBytes    uint32
}

func (s ShmInfo) encodeInto(w *byteWriter) {
	w.varint(uint64(s.MaxMetadataBytes))
	w.varint(uint64(s.MetadataOffset))
	w.varint(uint64(s.MediaDataOffset))
	w.varint(uint64(s.MaxMediaBytes))
}

func decodeShmInfo(r *byteReader) (ShmInfo, error) {
	var s ShmInfo
	vals := make([]uint64, 4)
	for i := range vals {
		v, err := r.varint()
		if err != nil {
			return s, err
		}
		vals[i] = v
	}
	s.MaxMetadataBytes, s.MetadataOffset, s.MediaDataOffset, s.MaxMediaBytes =
		uint32(vals[0]), uint32(vals[1]), uint32(vals[2]), uint32(vals[3])
	return s, nil
}

// NeedMediaDataEvent carries the server's demand for more samples on a
// given source.
type NeedMediaDataEvent struct {
	SessionID  int32
	SourceID   int32
	FrameCount uint32
	RequestID  uint32
	HasShmInfo bool
	ShmInfo    ShmInfo
}

func (m NeedMediaDataEvent) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.SessionID))
	w.signedVarint(int64(m.SourceID))
	w.varint(uint64(m.FrameCount))
	w.varint(uint64(m.RequestID))
	w.byte(boolByte(m.HasShmInfo))
	if m.HasShmInfo {
		m.ShmInfo.encodeInto(w)
	}
	return w.bytesOut()
}

func DecodeNeedMediaDataEvent(b []byte) (NeedMediaDataEvent, error) {
	r := newByteReader(b)
	var m NeedMediaDataEvent
	sid, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	src, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	frames, err := r.varint()
	if err != nil {
		return m, err
	}
	reqID, err := r.varint()
	if err != nil {
		return m, err
	}
	has, err := r.readByte()
	if err != nil {
		return m, err
	}
	m.SessionID, m.SourceID = int32(sid), int32(src)
	m.FrameCount, m.RequestID = uint32(frames), uint32(reqID)
	m.HasShmInfo = has != 0
	if m.HasShmInfo {
		info, err := decodeShmInfo(r)
		if err != nil {
			return m, err
		}
		m.ShmInfo = info
	}
	return m, nil
}

// PlaybackStateChangeEvent reports a pipeline state transition.
type PlaybackStateChangeEvent struct {
	SessionID int32
	State     PlaybackState
}

func (m PlaybackStateChangeEvent) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.SessionID))
	w.varint(ToWirePlaybackState(m.State))
	return w.bytesOut()
}

func DecodePlaybackStateChangeEvent(b []byte) (PlaybackStateChangeEvent, error) {
	r := newByteReader(b)
	var m PlaybackStateChangeEvent
	sid, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	st, err := r.varint()
	if err != nil {
		return m, err
	}
	m.SessionID, m.State = int32(sid), FromWirePlaybackState(st)
	return m, nil
}

// NetworkStateChangeEvent reports a network/buffering state transition.
type NetworkStateChangeEvent struct {
	SessionID int32
	State     NetworkState
}

func (m NetworkStateChangeEvent) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.SessionID))
	w.varint(ToWireNetworkState(m.State))
	return w.bytesOut()
}

func DecodeNetworkStateChangeEvent(b []byte) (NetworkStateChangeEvent, error) {
	r := newByteReader(b)
	var m NetworkStateChangeEvent
	sid, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	st, err := r.varint()
	if err != nil {
		return m, err
	}
	m.SessionID, m.State = int32(sid), FromWireNetworkState(st)
	return m, nil
}

// PositionChangeEvent reports the server's current playback position.
type PositionChangeEvent struct {
	SessionID  int32
	PositionNs int64
}

func (m PositionChangeEvent) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.SessionID))
	w.signedVarint(m.PositionNs)
	return w.bytesOut()
}

func DecodePositionChangeEvent(b []byte) (PositionChangeEvent, error) {
	r := newByteReader(b)
	var m PositionChangeEvent
	sid, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	pos, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	m.SessionID, m.PositionNs = int32(sid), pos
	return m, nil
}

// QosInfo mirrors the processed/dropped frame counters named in spec.md §6
// but never modeled as a data-model type there; see SPEC_FULL.md §3.
type QosInfo struct {
	Processed uint64
	Dropped   uint64
}

// QosEvent reports quality-of-service counters for one source.
type QosEvent struct {
	SessionID int32
	SourceID  int32
	Info      QosInfo
}

func (m QosEvent) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.SessionID))
	w.signedVarint(int64(m.SourceID))
	w.varint(m.Info.Processed)
	w.varint(m.Info.Dropped)
	return w.bytesOut()
}

func DecodeQosEvent(b []byte) (QosEvent, error) {
	r := newByteReader(b)
	var m QosEvent
	sid, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	src, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	proc, err := r.varint()
	if err != nil {
		return m, err
	}
	drop, err := r.varint()
	if err != nil {
		return m, err
	}
	m.SessionID, m.SourceID = int32(sid), int32(src)
	m.Info = QosInfo{Processed: proc, Dropped: drop}
	return m, nil
}

// GetSharedMemoryReply carries the size of the shared memory region; the fd
// itself travels as socket ancillary data (see transport.Channel), not in
// the payload.
type GetSharedMemoryReply struct {
	Size int64
	OK   bool
}

func (m GetSharedMemoryReply) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(m.Size)
	w.byte(boolByte(m.OK))
	return w.bytesOut()
}

func DecodeGetSharedMemoryReply(b []byte) (GetSharedMemoryReply, error) {
	r := newByteReader(b)
	var m GetSharedMemoryReply
	size, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	ok, err := r.readByte()
	if err != nil {
		return m, err
	}
	m.Size, m.OK = size, ok != 0
	return m, nil
}

// --- MediaKeysModule messages, per SPEC_FULL.md §6 ---

// CreateMediaKeysRequest carries MediaKeysModule.createMediaKeys's key
// system name.
type CreateMediaKeysRequest struct {
	KeySystem string
}

func (m CreateMediaKeysRequest) Encode() []byte {
	w := &byteWriter{}
	w.string(m.KeySystem)
	return w.bytesOut()
}

func DecodeCreateMediaKeysRequest(b []byte) (CreateMediaKeysRequest, error) {
	r := newByteReader(b)
	var m CreateMediaKeysRequest
	ks, err := r.string()
	if err != nil {
		return m, err
	}
	m.KeySystem = ks
	return m, nil
}

// CreateMediaKeysReply carries the connection-scoped handle identifying the
// opened MediaKeys instance, used by every subsequent key-session call.
type CreateMediaKeysReply struct {
	MediaKeysHandle int32
	OK              bool
}

func (m CreateMediaKeysReply) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.MediaKeysHandle))
	w.byte(boolByte(m.OK))
	return w.bytesOut()
}

func DecodeCreateMediaKeysReply(b []byte) (CreateMediaKeysReply, error) {
	r := newByteReader(b)
	var m CreateMediaKeysReply
	h, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	ok, err := r.readByte()
	if err != nil {
		return m, err
	}
	m.MediaKeysHandle, m.OK = int32(h), ok != 0
	return m, nil
}

// CreateKeySessionRequest carries MediaKeysModule.createKeySession's parameters.
type CreateKeySessionRequest struct {
	MediaKeysHandle int32
	SessionType     int32
	IsLDL           bool
}

func (m CreateKeySessionRequest) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.MediaKeysHandle))
	w.varint(uint64(m.SessionType))
	w.byte(boolByte(m.IsLDL))
	return w.bytesOut()
}

func DecodeCreateKeySessionRequest(b []byte) (CreateKeySessionRequest, error) {
	r := newByteReader(b)
	var m CreateKeySessionRequest
	h, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	st, err := r.varint()
	if err != nil {
		return m, err
	}
	ldl, err := r.readByte()
	if err != nil {
		return m, err
	}
	m.MediaKeysHandle, m.SessionType, m.IsLDL = int32(h), int32(st), ldl != 0
	return m, nil
}

// CreateKeySessionReply carries the newly-assigned key session id.
type CreateKeySessionReply struct {
	KeySessionID int32
	Status       MediaKeyErrorStatus
}

func (m CreateKeySessionReply) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.KeySessionID))
	w.varint(uint64(m.Status))
	return w.bytesOut()
}

func DecodeCreateKeySessionReply(b []byte) (CreateKeySessionReply, error) {
	r := newByteReader(b)
	var m CreateKeySessionReply
	id, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	st, err := r.varint()
	if err != nil {
		return m, err
	}
	m.KeySessionID, m.Status = int32(id), MediaKeyErrorStatus(st)
	return m, nil
}

// KeySessionIDRequest is shared by every method that only needs a key
// session id: CloseKeySession, GetCdmKeySessionID.
type KeySessionIDRequest struct {
	KeySessionID int32
}

func (m KeySessionIDRequest) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.KeySessionID))
	return w.bytesOut()
}

func DecodeKeySessionIDRequest(b []byte) (KeySessionIDRequest, error) {
	r := newByteReader(b)
	var m KeySessionIDRequest
	id, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	m.KeySessionID = int32(id)
	return m, nil
}

// MediaKeyStatusReply carries the MediaKeyErrorStatus shared by
// GenerateRequest, UpdateSession, and CloseKeySession.
type MediaKeyStatusReply struct {
	Status MediaKeyErrorStatus
}

func (m MediaKeyStatusReply) Encode() []byte {
	w := &byteWriter{}
	w.varint(uint64(m.Status))
	return w.bytesOut()
}

func DecodeMediaKeyStatusReply(b []byte) (MediaKeyStatusReply, error) {
	r := newByteReader(b)
	st, err := r.varint()
	if err != nil {
		return MediaKeyStatusReply{}, err
	}
	return MediaKeyStatusReply{Status: MediaKeyErrorStatus(st)}, nil
}

// GenerateRequestRequest carries MediaKeysModule.generateRequest's parameters.
type GenerateRequestRequest struct {
	KeySessionID int32
	InitDataType string
	InitData     []byte
}

func (m GenerateRequestRequest) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.KeySessionID))
	w.string(m.InitDataType)
	w.bytes(m.InitData)
	return w.bytesOut()
}

func DecodeGenerateRequestRequest(b []byte) (GenerateRequestRequest, error) {
	r := newByteReader(b)
	var m GenerateRequestRequest
	id, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	idt, err := r.string()
	if err != nil {
		return m, err
	}
	data, err := r.bytes()
	if err != nil {
		return m, err
	}
	m.KeySessionID = int32(id)
	m.InitDataType = idt
	m.InitData = append([]byte(nil), data...)
	return m, nil
}

// UpdateSessionRequest carries MediaKeysModule.updateSession's parameters.
type UpdateSessionRequest struct {
	KeySessionID int32
	ResponseData []byte
}

func (m UpdateSessionRequest) Encode() []byte {
	w := &byteWriter{}
	w.signedVarint(int64(m.KeySessionID))
	w.bytes(m.ResponseData)
	return w.bytesOut()
}

func DecodeUpdateSessionRequest(b []byte) (UpdateSessionRequest, error) {
	r := newByteReader(b)
	var m UpdateSessionRequest
	id, err := r.signedVarint()
	if err != nil {
		return m, err
	}
	data, err := r.bytes()
	if err != nil {
		return m, err
	}
	m.KeySessionID = int32(id)
	m.ResponseData = append([]byte(nil), data...)
	return m, nil
}

// GetCdmKeySessionIDReply carries the OCDM-owned opaque session id string,
// distinct from the integer KeySessionID per the GLOSSARY.
type GetCdmKeySessionIDReply struct {
	CdmKeySessionID string
	Status          MediaKeyErrorStatus
}

func (m GetCdmKeySessionIDReply) Encode() []byte {
	w := &byteWriter{}
	w.string(m.CdmKeySessionID)
	w.varint(uint64(m.Status))
	return w.bytesOut()
}

func DecodeGetCdmKeySessionIDReply(b []byte) (GetCdmKeySessionIDReply, error) {
	r := newByteReader(b)
	var m GetCdmKeySessionIDReply
	id, err := r.string()
	if err != nil {
		return m, err
	}
	st, err := r.varint()
	if err != nil {
		return m, err
	}
	m.CdmKeySessionID, m.Status = id, MediaKeyErrorStatus(st)
	return m, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
