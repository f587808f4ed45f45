// Copyright 2026 The IyesMesh Authors
// SPDX-License-Identifier: Apache-2.0

package ima

// ReaderOptions control which checksums a Reader verifies. Both
// default to on; callers that trust the source (a local cache they
// wrote themselves) can skip data verification for speed. Skipping
// metadata verification still decodes and structurally validates the
// descriptor.
type ReaderOptions struct {
	VerifyMetadata bool
	VerifyData     bool
}

// DefaultReaderOptions verifies everything.
func DefaultReaderOptions() ReaderOptions {
	return ReaderOptions{VerifyMetadata: true, VerifyData: true}
}

type readerState uint8

const (
	stateHeader readerState = iota + 1
	stateDescriptor
	stateDone
	stateFailed
)

// Reader is the staged read path over an in-memory (or memory-mapped)
// IMA file. Stages are strictly ordered:
//
//	Open (header) → Descriptor → VerifyData? → UserData | Full
//
// Every view the reader returns borrows either from the file bytes or
// from the reader's decompression scratch; views are invalidated when
// the backing memory is released. Any error poisons the reader:
// subsequent operations return ReaderPoisoned.
type Reader struct {
	file    []byte
	options ReaderOptions

	state        readerState
	header       Header
	descriptor   *Descriptor
	totalLen     uint64
	dataVerified bool
}

// Open reads and validates the file header (stage one). The
// descriptor and payload are untouched; callers that only need the
// header can stop here and release nothing.
func Open(file []byte) (*Reader, error) {
	return OpenWithOptions(file, DefaultReaderOptions())
}

// OpenWithOptions is Open with explicit verification settings.
func OpenWithOptions(file []byte, options ReaderOptions) (*Reader, error) {
	header, err := parseHeader(file)
	if err != nil {
		return nil, err
	}
	return &Reader{file: file, options: options, state: stateHeader, header: header}, nil
}

// Header returns the decoded file header.
func (r *Reader) Header() Header {
	return r.header
}

// Descriptor decodes and validates the descriptor (stage two): the
// metadata checksum is recomputed and compared, the encoding is
// decoded, and the structural invariants are checked. Subsequent calls
// return the same descriptor; callers must not mutate it.
func (r *Reader) Descriptor() (*Descriptor, error) {
	switch r.state {
	case stateFailed:
		return nil, errf(ReaderPoisoned, "a previous stage failed")
	case stateDescriptor, stateDone:
		return r.descriptor, nil
	case stateHeader:
	default:
		return nil, r.fail(errf(StageOutOfOrder, "descriptor requested before header"))
	}

	descriptorEnd := HeaderSize + int(r.header.DescriptorLen)
	if len(r.file) < descriptorEnd {
		return nil, r.fail(errf(TruncatedDescriptor, "file ends at %d, descriptor ends at %d",
			len(r.file), descriptorEnd))
	}
	descriptorBytes := r.file[HeaderSize:descriptorEnd]

	if r.options.VerifyMetadata {
		computed := metadataChecksum(descriptorBytes, r.header.DescriptorLen, r.header.DataChecksum)
		if computed != r.header.MetadataChecksum {
			return nil, r.fail(errf(MetadataChecksumMismatch, "computed %016x, header has %016x",
				computed, r.header.MetadataChecksum))
		}
	}

	descriptor, err := decodeDescriptor(descriptorBytes)
	if err != nil {
		return nil, r.fail(err)
	}
	if err := descriptor.Validate(); err != nil {
		return nil, r.fail(err)
	}
	totalLen, err := descriptor.TotalLen()
	if err != nil {
		return nil, r.fail(err)
	}

	r.descriptor = descriptor
	r.totalLen = totalLen
	r.state = stateDescriptor
	return descriptor, nil
}

// VerifyData recomputes the data checksum over the compressed payload
// and compares it to the header (stage three). It decompresses
// nothing. UserData and Full run this automatically when the reader's
// options request data verification; calling it explicitly lets a
// caller validate a file without paying for decompression.
func (r *Reader) VerifyData() error {
	if err := r.requireDescriptorStage("data verification"); err != nil {
		return err
	}
	computed := dataChecksum(r.compressed())
	if computed != r.header.DataChecksum {
		return r.fail(errf(DataChecksumMismatch, "computed %016x, header has %016x",
			computed, r.header.DataChecksum))
	}
	r.dataVerified = true
	return nil
}

// UserData decompresses only the user-data prefix of the payload
// (stage U). The decompressor stops as soon as the prefix is produced;
// the mesh buffers are never inflated. The reader is done afterwards.
func (r *Reader) UserData() ([]byte, error) {
	if err := r.requireDescriptorStage("user data"); err != nil {
		return nil, err
	}
	if err := r.maybeVerifyData(); err != nil {
		return nil, err
	}
	prefix, err := decompressPrefix(r.compressed(), uint64(r.descriptor.UserDataLen))
	if err != nil {
		return nil, r.fail(err)
	}
	r.state = stateDone
	return prefix, nil
}

// Full decompresses the complete payload and splits it into per-buffer
// views (stage F). The returned buffers borrow from the decompression
// scratch. The reader is done afterwards.
func (r *Reader) Full() (*Buffers, error) {
	if err := r.requireDescriptorStage("full payload"); err != nil {
		return nil, err
	}
	if err := r.maybeVerifyData(); err != nil {
		return nil, err
	}
	payload, err := decompressAll(r.compressed(), r.totalLen)
	if err != nil {
		return nil, r.fail(err)
	}
	buffers, err := Split(payload, r.descriptor)
	if err != nil {
		return nil, r.fail(err)
	}
	r.state = stateDone
	return buffers, nil
}

// Verify runs the header, descriptor, and data-checksum stages without
// decompressing anything. Nil means the file's structure and both
// checksums are sound.
func Verify(file []byte) error {
	reader, err := Open(file)
	if err != nil {
		return err
	}
	if _, err := reader.Descriptor(); err != nil {
		return err
	}
	return reader.VerifyData()
}

// compressed returns the payload region of the file. Valid only after
// the descriptor stage bounded it.
func (r *Reader) compressed() []byte {
	return r.file[HeaderSize+int(r.header.DescriptorLen):]
}

func (r *Reader) requireDescriptorStage(operation string) error {
	switch r.state {
	case stateFailed:
		return errf(ReaderPoisoned, "a previous stage failed")
	case stateDescriptor:
		return nil
	case stateHeader:
		return r.fail(errf(StageOutOfOrder, "%s requested before the descriptor stage", operation))
	default:
		return r.fail(errf(StageOutOfOrder, "%s requested after the reader finished", operation))
	}
}

func (r *Reader) maybeVerifyData() error {
	if !r.options.VerifyData || r.dataVerified {
		return nil
	}
	return r.VerifyData()
}

// fail moves the reader to its terminal failed state and passes the
// error through.
func (r *Reader) fail(err error) error {
	r.state = stateFailed
	return err
}
