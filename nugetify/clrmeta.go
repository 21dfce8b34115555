package nugetify

import (
	"bytes"
	"context"
	"crypto/sha1"
	"debug/pe"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"go.trai.ch/zerr"
)

// MetadataProber reads assembly identities from the ECMA-335 metadata of
// PE files. Nothing is loaded or executed.
type MetadataProber struct{}

// ProbeFile returns the identity recorded in the assembly manifest of path.
func (MetadataProber) ProbeFile(ctx context.Context, path string) (AssemblyIdentity, error) {
	if err := ctx.Err(); err != nil {
		return AssemblyIdentity{}, err
	}

	f, err := pe.Open(path)
	if err != nil {
		return AssemblyIdentity{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	id, err := readAssemblyIdentity(f)
	if err != nil {
		return AssemblyIdentity{}, zerr.With(err, "path", path)
	}
	return id, nil
}

var errTruncated = errors.New("metadata truncated")

const (
	metadataSignature = 0x424A5342
	cliHeaderSize     = 72
	assemblyPublicKey = 0x0001
)

// Metadata table numbers, ECMA-335 II.22.
const (
	tModule = iota
	tTypeRef
	tTypeDef
	tFieldPtr
	tField
	tMethodPtr
	tMethodDef
	tParamPtr
	tParam
	tInterfaceImpl
	tMemberRef
	tConstant
	tCustomAttribute
	tFieldMarshal
	tDeclSecurity
	tClassLayout
	tFieldLayout
	tStandAloneSig
	tEventMap
	tEventPtr
	tEvent
	tPropertyMap
	tPropertyPtr
	tProperty
	tMethodSemantics
	tMethodImpl
	tModuleRef
	tTypeSpec
	tImplMap
	tFieldRVA
	tEncLog
	tEncMap
	tAssembly
)

const (
	tAssemblyRef            = 0x23
	tFile                   = 0x26
	tExportedType           = 0x27
	tManifestResource       = 0x28
	tGenericParam           = 0x2A
	tMethodSpec             = 0x2B
	tGenericParamConstraint = 0x2C
)

type codedIndex struct {
	tagBits uint
	tables  []int
}

var (
	typeDefOrRef        = codedIndex{2, []int{tTypeDef, tTypeRef, tTypeSpec}}
	hasConstant         = codedIndex{2, []int{tField, tParam, tProperty}}
	hasFieldMarshal     = codedIndex{1, []int{tField, tParam}}
	hasDeclSecurity     = codedIndex{2, []int{tTypeDef, tMethodDef, tAssembly}}
	memberRefParent     = codedIndex{3, []int{tTypeDef, tTypeRef, tModuleRef, tMethodDef, tTypeSpec}}
	hasSemantics        = codedIndex{1, []int{tEvent, tProperty}}
	methodDefOrRef      = codedIndex{1, []int{tMethodDef, tMemberRef}}
	memberForwarded     = codedIndex{1, []int{tField, tMethodDef}}
	customAttributeType = codedIndex{3, []int{tMethodDef, tMemberRef}}
	resolutionScope     = codedIndex{2, []int{tModule, tModuleRef, tAssemblyRef, tTypeRef}}
	hasCustomAttribute  = codedIndex{5, []int{
		tMethodDef, tField, tTypeRef, tTypeDef, tParam, tInterfaceImpl, tMemberRef,
		tModule, tDeclSecurity, tProperty, tEvent, tStandAloneSig, tModuleRef, tTypeSpec,
		tAssembly, tAssemblyRef, tFile, tExportedType, tManifestResource, tGenericParam,
		tGenericParamConstraint, tMethodSpec,
	}}
)

func readAssemblyIdentity(f *pe.File) (AssemblyIdentity, error) {
	var dirs []pe.DataDirectory
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		dirs = oh.DataDirectory[:min(int(oh.NumberOfRvaAndSizes), len(oh.DataDirectory))]
	case *pe.OptionalHeader64:
		dirs = oh.DataDirectory[:min(int(oh.NumberOfRvaAndSizes), len(oh.DataDirectory))]
	}
	if len(dirs) <= pe.IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR || dirs[pe.IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR].VirtualAddress == 0 {
		return AssemblyIdentity{}, ErrNotManagedAssembly
	}

	cli, err := readRVA(f, dirs[pe.IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR].VirtualAddress, cliHeaderSize)
	if err != nil {
		return AssemblyIdentity{}, fmt.Errorf("read CLI header: %w", err)
	}

	le := binary.LittleEndian
	md, err := readRVA(f, le.Uint32(cli[8:]), le.Uint32(cli[12:]))
	if err != nil {
		return AssemblyIdentity{}, fmt.Errorf("read metadata: %w", err)
	}

	streams, err := parseStreams(md)
	if err != nil {
		return AssemblyIdentity{}, err
	}

	tables, ok := streams["#~"]
	if !ok {
		tables, ok = streams["#-"]
	}
	if !ok {
		return AssemblyIdentity{}, fmt.Errorf("%w: no tables stream", ErrNotManagedAssembly)
	}

	return readAssemblyRow(tables, streams["#Strings"], streams["#Blob"])
}

func readRVA(f *pe.File, rva, size uint32) ([]byte, error) {
	for _, s := range f.Sections {
		extent := max(s.VirtualSize, s.Size)
		if rva < s.VirtualAddress || rva >= s.VirtualAddress+extent {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, err
		}
		off := uint64(rva - s.VirtualAddress)
		end := off + uint64(size)
		if end > uint64(len(data)) {
			return nil, errTruncated
		}
		return data[off:end], nil
	}
	return nil, fmt.Errorf("rva 0x%x is outside every section", rva)
}

func parseStreams(md []byte) (map[string][]byte, error) {
	le := binary.LittleEndian
	if len(md) < 16 || le.Uint32(md) != metadataSignature {
		return nil, fmt.Errorf("%w: bad metadata signature", ErrNotManagedAssembly)
	}

	pos := 16 + int(le.Uint32(md[12:]))
	if pos+4 > len(md) {
		return nil, errTruncated
	}
	count := int(le.Uint16(md[pos+2:]))
	pos += 4

	streams := make(map[string][]byte, count)
	for range count {
		if pos+8 > len(md) {
			return nil, errTruncated
		}
		offset := int(le.Uint32(md[pos:]))
		size := int(le.Uint32(md[pos+4:]))
		pos += 8

		nameLen := bytes.IndexByte(md[pos:], 0)
		if nameLen < 0 {
			return nil, errTruncated
		}
		name := string(md[pos : pos+nameLen])
		pos += (nameLen + 4) &^ 3

		if offset+size > len(md) {
			return nil, errTruncated
		}
		streams[name] = md[offset : offset+size]
	}
	return streams, nil
}

type tableStream struct {
	rows    [64]uint32
	strIdx  int
	guidIdx int
	blobIdx int
}

func (t *tableStream) simple(table int) int {
	if t.rows[table] < 1<<16 {
		return 2
	}
	return 4
}

func (t *tableStream) coded(ci codedIndex) int {
	var most uint32
	for _, table := range ci.tables {
		most = max(most, t.rows[table])
	}
	if most < 1<<(16-ci.tagBits) {
		return 2
	}
	return 4
}

// rowSize returns the row width of the tables preceding Assembly.
func (t *tableStream) rowSize(table int) int {
	s, g, b := t.strIdx, t.guidIdx, t.blobIdx
	switch table {
	case tModule:
		return 2 + s + 3*g
	case tTypeRef:
		return t.coded(resolutionScope) + 2*s
	case tTypeDef:
		return 4 + 2*s + t.coded(typeDefOrRef) + t.simple(tField) + t.simple(tMethodDef)
	case tFieldPtr:
		return t.simple(tField)
	case tField:
		return 2 + s + b
	case tMethodPtr:
		return t.simple(tMethodDef)
	case tMethodDef:
		return 4 + 2 + 2 + s + b + t.simple(tParam)
	case tParamPtr:
		return t.simple(tParam)
	case tParam:
		return 2 + 2 + s
	case tInterfaceImpl:
		return t.simple(tTypeDef) + t.coded(typeDefOrRef)
	case tMemberRef:
		return t.coded(memberRefParent) + s + b
	case tConstant:
		return 2 + t.coded(hasConstant) + b
	case tCustomAttribute:
		return t.coded(hasCustomAttribute) + t.coded(customAttributeType) + b
	case tFieldMarshal:
		return t.coded(hasFieldMarshal) + b
	case tDeclSecurity:
		return 2 + t.coded(hasDeclSecurity) + b
	case tClassLayout:
		return 2 + 4 + t.simple(tTypeDef)
	case tFieldLayout:
		return 4 + t.simple(tField)
	case tStandAloneSig:
		return b
	case tEventMap:
		return t.simple(tTypeDef) + t.simple(tEvent)
	case tEventPtr:
		return t.simple(tEvent)
	case tEvent:
		return 2 + s + t.coded(typeDefOrRef)
	case tPropertyMap:
		return t.simple(tTypeDef) + t.simple(tProperty)
	case tPropertyPtr:
		return t.simple(tProperty)
	case tProperty:
		return 2 + s + b
	case tMethodSemantics:
		return 2 + t.simple(tMethodDef) + t.coded(hasSemantics)
	case tMethodImpl:
		return t.simple(tTypeDef) + 2*t.coded(methodDefOrRef)
	case tModuleRef:
		return s
	case tTypeSpec:
		return b
	case tImplMap:
		return 2 + t.coded(memberForwarded) + s + t.simple(tModuleRef)
	case tFieldRVA:
		return 4 + t.simple(tField)
	case tEncLog:
		return 8
	case tEncMap:
		return 4
	}
	return 0
}

func readAssemblyRow(tables, strs, blobs []byte) (AssemblyIdentity, error) {
	le := binary.LittleEndian
	if len(tables) < 24 {
		return AssemblyIdentity{}, errTruncated
	}

	heapSizes := tables[6]
	valid := le.Uint64(tables[8:])

	t := &tableStream{strIdx: 2, guidIdx: 2, blobIdx: 2}
	if heapSizes&0x01 != 0 {
		t.strIdx = 4
	}
	if heapSizes&0x02 != 0 {
		t.guidIdx = 4
	}
	if heapSizes&0x04 != 0 {
		t.blobIdx = 4
	}

	pos := 24
	for i := range 64 {
		if valid&(1<<uint(i)) == 0 {
			continue
		}
		if pos+4 > len(tables) {
			return AssemblyIdentity{}, errTruncated
		}
		t.rows[i] = le.Uint32(tables[pos:])
		pos += 4
	}
	if heapSizes&0x40 != 0 {
		pos += 4
	}

	if t.rows[tAssembly] == 0 {
		return AssemblyIdentity{}, fmt.Errorf("%w: no assembly manifest", ErrNotManagedAssembly)
	}

	for table := tModule; table < tAssembly; table++ {
		pos += int(t.rows[table]) * t.rowSize(table)
	}

	row := 4 + 4*2 + 4 + t.blobIdx + 2*t.strIdx
	if pos+row > len(tables) {
		return AssemblyIdentity{}, errTruncated
	}
	r := tables[pos : pos+row]

	readIndex := func(off, size int) uint32 {
		if size == 2 {
			return uint32(le.Uint16(r[off:]))
		}
		return le.Uint32(r[off:])
	}

	version := fmt.Sprintf("%d.%d.%d.%d", le.Uint16(r[4:]), le.Uint16(r[6:]), le.Uint16(r[8:]), le.Uint16(r[10:]))
	flags := le.Uint32(r[12:])
	off := 16
	keyIdx := readIndex(off, t.blobIdx)
	off += t.blobIdx
	nameIdx := readIndex(off, t.strIdx)
	off += t.strIdx
	cultureIdx := readIndex(off, t.strIdx)

	name, err := heapString(strs, nameIdx)
	if err != nil {
		return AssemblyIdentity{}, err
	}
	culture, err := heapString(strs, cultureIdx)
	if err != nil {
		return AssemblyIdentity{}, err
	}
	if culture == "" {
		culture = "neutral"
	}

	id := AssemblyIdentity{Name: name, Version: version, Culture: culture}

	if flags&assemblyPublicKey != 0 {
		key, err := heapBlob(blobs, keyIdx)
		if err != nil {
			return AssemblyIdentity{}, err
		}
		if len(key) > 0 {
			id.PublicKeyToken = publicKeyToken(key)
		}
	}

	return id, nil
}

func heapString(heap []byte, idx uint32) (string, error) {
	if int(idx) >= len(heap) {
		if idx == 0 {
			return "", nil
		}
		return "", errTruncated
	}
	end := bytes.IndexByte(heap[idx:], 0)
	if end < 0 {
		return "", errTruncated
	}
	return string(heap[idx : int(idx)+end]), nil
}

func heapBlob(heap []byte, idx uint32) ([]byte, error) {
	i := int(idx)
	if i >= len(heap) {
		return nil, errTruncated
	}

	var size, hdr int
	switch b := heap[i]; {
	case b&0x80 == 0:
		size, hdr = int(b), 1
	case b&0xC0 == 0x80:
		if i+2 > len(heap) {
			return nil, errTruncated
		}
		size, hdr = int(b&0x3F)<<8|int(heap[i+1]), 2
	default:
		if i+4 > len(heap) {
			return nil, errTruncated
		}
		size, hdr = int(b&0x1F)<<24|int(heap[i+1])<<16|int(heap[i+2])<<8|int(heap[i+3]), 4
	}

	if i+hdr+size > len(heap) {
		return nil, errTruncated
	}
	return heap[i+hdr : i+hdr+size], nil
}

// publicKeyToken is the last eight bytes of the key's SHA-1, reversed.
func publicKeyToken(key []byte) string {
	sum := sha1.Sum(key)
	token := make([]byte, 8)
	for i := range token {
		token[i] = sum[len(sum)-1-i]
	}
	return hex.EncodeToString(token)
}
