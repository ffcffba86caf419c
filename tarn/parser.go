// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tarn

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
)

const (
	moduleMagic      = "\x00asm"
	supportedVersion = 1
)

// DecodeError reports a malformed binary module. It is always fatal and
// always happens before any execution.
type DecodeError struct {
	Section string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Section == "" {
		return fmt.Sprintf("malformed module: %v", e.Err)
	}
	return fmt.Sprintf("malformed module: %s section: %v", e.Section, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type sectionID byte

const (
	customSectionID sectionID = iota
	typeSectionID
	importSectionID
	functionSectionID
	tableSectionID
	memorySectionID
	globalSectionID
	exportSectionID
	startSectionID
	elementSectionID
	codeSectionID
	dataSectionID
)

// Parser decodes the binary module format: a section-based container with
// declared types, function imports, defined functions, exports, and data
// segments.
type Parser struct {
	reader *bufio.Reader
	dec    *codeDecoder
}

func NewParser(reader io.Reader) *Parser {
	buffered := bufio.NewReader(reader)
	return &Parser{reader: buffered, dec: newCodeDecoder(buffered)}
}

// Parse decodes a complete module and validates its cross-references.
func (p *Parser) Parse() (*Module, error) {
	if err := p.parseHeader(); err != nil {
		return nil, &DecodeError{Err: err}
	}

	var types []Signature
	var imports []Import
	var functionTypeIndexes []uint32
	var memoryPages *uint32
	var exports []Export
	var codes []Code
	var dataSegments []DataSegment

	for {
		sectionIDByte, err := p.reader.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DecodeError{Err: fmt.Errorf("failed to read section ID: %w", err)}
		}

		payloadLen, err := p.dec.uleb128()
		if err != nil {
			return nil, &DecodeError{Err: fmt.Errorf("failed to read payload length: %w", err)}
		}

		switch sectionID(sectionIDByte) {
		case customSectionID:
			// Custom sections carry no semantics and are skipped.
			if _, err := io.CopyN(io.Discard, p.reader, int64(payloadLen)); err != nil {
				return nil, &DecodeError{Section: "custom", Err: err}
			}
		case typeSectionID:
			types, err = parseVector(p, p.parseSignature)
			if err != nil {
				return nil, &DecodeError{Section: "type", Err: err}
			}
		case importSectionID:
			imports, err = parseVector(p, p.parseImport)
			if err != nil {
				return nil, &DecodeError{Section: "import", Err: err}
			}
		case functionSectionID:
			functionTypeIndexes, err = parseVector(p, p.dec.index)
			if err != nil {
				return nil, &DecodeError{Section: "function", Err: err}
			}
		case memorySectionID:
			memoryPages, err = p.parseMemorySection()
			if err != nil {
				return nil, &DecodeError{Section: "memory", Err: err}
			}
		case exportSectionID:
			exports, err = parseVector(p, p.parseExport)
			if err != nil {
				return nil, &DecodeError{Section: "export", Err: err}
			}
		case codeSectionID:
			codes, err = parseVector(p, p.parseCode)
			if err != nil {
				return nil, &DecodeError{Section: "code", Err: err}
			}
		case dataSectionID:
			dataSegments, err = parseVector(p, p.parseDataSegment)
			if err != nil {
				return nil, &DecodeError{Section: "data", Err: err}
			}
		default:
			return nil, &DecodeError{
				Err: fmt.Errorf("section %d not supported", sectionIDByte),
			}
		}
	}

	if len(functionTypeIndexes) != len(codes) {
		return nil, &DecodeError{
			Err: fmt.Errorf(
				"incompatible number of function declarations (%d) and bodies (%d)",
				len(functionTypeIndexes), len(codes),
			),
		}
	}
	for i := range codes {
		codes[i].TypeIndex = functionTypeIndexes[i]
	}

	module := &Module{
		Types:        types,
		Imports:      imports,
		Funcs:        codes,
		Exports:      exports,
		MemoryPages:  memoryPages,
		DataSegments: dataSegments,
	}
	if err := validateModule(module); err != nil {
		return nil, err
	}
	return module, nil
}

// validateModule checks the decoded cross-references: type indices, export
// indices, and export name uniqueness. Inconsistent references fail decoding
// rather than silently defaulting.
func validateModule(m *Module) error {
	for _, imp := range m.Imports {
		if int(imp.TypeIndex) >= len(m.Types) {
			return &DecodeError{
				Section: "import",
				Err:     fmt.Errorf("type index %d out of range", imp.TypeIndex),
			}
		}
	}
	for _, code := range m.Funcs {
		if int(code.TypeIndex) >= len(m.Types) {
			return &DecodeError{
				Section: "function",
				Err:     fmt.Errorf("type index %d out of range", code.TypeIndex),
			}
		}
	}

	tableSize := len(m.Imports) + len(m.Funcs)
	seen := make(map[string]bool, len(m.Exports))
	for _, export := range m.Exports {
		if int(export.Index) >= tableSize {
			return &DecodeError{
				Section: "export",
				Err:     fmt.Errorf("function index %d out of range", export.Index),
			}
		}
		if seen[export.Name] {
			return &DecodeError{
				Section: "export",
				Err:     fmt.Errorf("duplicate export %q", export.Name),
			}
		}
		seen[export.Name] = true
	}
	return nil
}

func (p *Parser) parseHeader() error {
	header := make([]byte, 8)
	if _, err := io.ReadFull(p.reader, header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fmt.Errorf("file is too short to be a valid module")
		}
		return fmt.Errorf("could not read header: %w", err)
	}

	if !bytes.HasPrefix(header, []byte(moduleMagic)) {
		return fmt.Errorf("does not start with magic number")
	}

	version := uint32(header[4]) | uint32(header[5])<<8 |
		uint32(header[6])<<16 | uint32(header[7])<<24
	if version != supportedVersion {
		return fmt.Errorf("unsupported version: %d", version)
	}
	return nil
}

func (p *Parser) parseSignature() (Signature, error) {
	b, err := p.reader.ReadByte()
	if err != nil {
		return Signature{}, io.ErrUnexpectedEOF
	}
	if b != 0x60 {
		return Signature{}, fmt.Errorf("invalid function type prefix: 0x%02x", b)
	}

	params, err := parseVector(p, p.parseValueKind)
	if err != nil {
		return Signature{}, fmt.Errorf("failed to parse param types: %w", err)
	}
	results, err := parseVector(p, p.parseValueKind)
	if err != nil {
		return Signature{}, fmt.Errorf("failed to parse result types: %w", err)
	}
	if len(results) > 1 {
		return Signature{}, fmt.Errorf(
			"multi-value returns are not supported (%d results)", len(results),
		)
	}
	return Signature{NumParams: len(params), HasResult: len(results) == 1}, nil
}

func (p *Parser) parseValueKind() (ValueKind, error) {
	b, err := p.reader.ReadByte()
	if err != nil {
		return 0, io.ErrUnexpectedEOF
	}
	switch b {
	case 0x7F:
		return KindI32, nil
	case 0x7E:
		return KindI64, nil
	case 0x7D:
		return KindF32, nil
	case 0x7C:
		return KindF64, nil
	default:
		return 0, fmt.Errorf("invalid value type: 0x%02x", b)
	}
}

func (p *Parser) parseImport() (Import, error) {
	moduleName, err := p.parseName()
	if err != nil {
		return Import{}, err
	}
	name, err := p.parseName()
	if err != nil {
		return Import{}, err
	}
	descriptor, err := p.reader.ReadByte()
	if err != nil {
		return Import{}, io.ErrUnexpectedEOF
	}
	if descriptor != 0x00 {
		return Import{}, fmt.Errorf(
			"%s.%s: only function imports are supported", moduleName, name,
		)
	}
	typeIndex, err := p.dec.index()
	if err != nil {
		return Import{}, err
	}
	return Import{ModuleName: moduleName, Name: name, TypeIndex: typeIndex}, nil
}

func (p *Parser) parseMemorySection() (*uint32, error) {
	count, err := p.dec.uleb128()
	if err != nil {
		return nil, err
	}
	if count != 1 {
		return nil, fmt.Errorf("expected exactly one memory, got %d", count)
	}

	flag, err := p.reader.ReadByte()
	if err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	if flag != 0 && flag != 1 {
		return nil, fmt.Errorf("unexpected limits format: 0x%02x", flag)
	}
	minPages, err := p.dec.index()
	if err != nil {
		return nil, err
	}
	if flag == 1 {
		// A declared maximum is parsed but not enforced; growth is unbounded.
		if _, err := p.dec.index(); err != nil {
			return nil, err
		}
	}
	return &minPages, nil
}

func (p *Parser) parseExport() (Export, error) {
	name, err := p.parseName()
	if err != nil {
		return Export{}, err
	}
	kind, err := p.reader.ReadByte()
	if err != nil {
		return Export{}, io.ErrUnexpectedEOF
	}
	if kind != 0x00 {
		return Export{}, fmt.Errorf("%q: only function exports are supported", name)
	}
	index, err := p.dec.index()
	if err != nil {
		return Export{}, err
	}
	return Export{Name: name, Index: index}, nil
}

func (p *Parser) parseCode() (Code, error) {
	size, err := p.dec.uleb128()
	if err != nil {
		return Code{}, err
	}

	// Limit reading to the declared body size so a malformed body cannot eat
	// into the following entries.
	limited := bufio.NewReader(io.LimitReader(p.reader, int64(size)))
	dec := newCodeDecoder(limited)

	localRuns, err := parseVectorWith(dec, func() ([]ValueKind, error) {
		return parseLocalRun(dec, limited)
	})
	if err != nil {
		return Code{}, fmt.Errorf("failed to parse locals: %w", err)
	}
	var locals []ValueKind
	for _, run := range localRuns {
		locals = append(locals, run...)
	}

	body, err := dec.decodeSequence()
	if err != nil {
		return Code{}, fmt.Errorf("failed to decode function body: %w", err)
	}
	if _, err := limited.ReadByte(); err != io.EOF {
		return Code{}, fmt.Errorf("unexpected bytes after function body")
	}
	return Code{Locals: locals, Body: body}, nil
}

// parseLocalRun parses one (count, kind) run of local declarations.
func parseLocalRun(dec *codeDecoder, r *bufio.Reader) ([]ValueKind, error) {
	count, err := dec.uleb128()
	if err != nil {
		return nil, err
	}
	if count > math.MaxInt32 {
		return nil, fmt.Errorf("too many local variables: %d", count)
	}
	b, err := r.ReadByte()
	if err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	var kind ValueKind
	switch b {
	case 0x7F:
		kind = KindI32
	case 0x7E:
		kind = KindI64
	case 0x7D:
		kind = KindF32
	case 0x7C:
		kind = KindF64
	default:
		return nil, fmt.Errorf("invalid local type: 0x%02x", b)
	}
	run := make([]ValueKind, count)
	for i := range run {
		run[i] = kind
	}
	return run, nil
}

func (p *Parser) parseDataSegment() (DataSegment, error) {
	mode, err := p.dec.uleb128()
	if err != nil {
		return DataSegment{}, err
	}
	if mode != 0 {
		return DataSegment{}, fmt.Errorf("unsupported data segment mode: %d", mode)
	}

	offsetExpression, err := p.dec.decodeSequence()
	if err != nil {
		return DataSegment{}, fmt.Errorf("failed to decode offset expression: %w", err)
	}

	length, err := p.dec.uleb128()
	if err != nil {
		return DataSegment{}, err
	}
	if length > math.MaxInt32 {
		return DataSegment{}, errIntegerTooLarge
	}
	content := make([]byte, length)
	if _, err := io.ReadFull(p.reader, content); err != nil {
		return DataSegment{}, fmt.Errorf("failed to read data segment bytes: %w", err)
	}
	return DataSegment{OffsetExpression: offsetExpression, Content: content}, nil
}

func (p *Parser) parseName() (string, error) {
	length, err := p.dec.uleb128()
	if err != nil {
		return "", err
	}
	if length > math.MaxInt32 {
		return "", errIntegerTooLarge
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(p.reader, buf); err != nil {
		return "", fmt.Errorf("failed to read string bytes: %w", err)
	}
	return string(buf), nil
}

func parseVector[T any](p *Parser, parse func() (T, error)) ([]T, error) {
	return parseVectorWith(p.dec, parse)
}

func parseVectorWith[T any](dec *codeDecoder, parse func() (T, error)) ([]T, error) {
	count, err := dec.uleb128()
	if err != nil {
		return nil, err
	}
	if count > math.MaxInt32 {
		return nil, fmt.Errorf("too many items in vector")
	}
	items := make([]T, count)
	for i := range items {
		item, err := parse()
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return items, nil
}
