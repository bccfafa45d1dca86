// Package wasmbin assembles small WebAssembly binary modules directly,
// without a textual frontend. It exists so tests and examples can build the
// stub runtime fixture in-process instead of shipping opaque .wasm files.
// Only the subset of the binary format the fixture needs is implemented.
package wasmbin

import "bytes"

// Value types
const (
	I32 byte = 0x7F
)

// Section ids
const (
	secType   byte = 1
	secImport byte = 2
	secFunc   byte = 3
	secMemory byte = 5
	secGlobal byte = 6
	secExport byte = 7
	secCode   byte = 10
	secData   byte = 11
)

// Export kinds
const (
	kindFunc   byte = 0x00
	kindMemory byte = 0x02
)

// writeULEB writes an unsigned LEB128 value
func writeULEB(w *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

// writeSLEB writes a signed LEB128 value
func writeSLEB(w *bytes.Buffer, v int32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			w.WriteByte(b)
			return
		}
		w.WriteByte(b | 0x80)
	}
}

func writeName(w *bytes.Buffer, name string) {
	writeULEB(w, uint32(len(name)))
	w.WriteString(name)
}

type funcType struct {
	params  []byte
	results []byte
}

type importEntry struct {
	module  string
	name    string
	typeIdx uint32
}

type globalEntry struct {
	valType byte
	mutable bool
	init    int32
}

type exportEntry struct {
	name string
	kind byte
	idx  uint32
}

type codeEntry struct {
	typeIdx uint32
	body    []byte
}

type dataEntry struct {
	offset int32
	data   []byte
}

// Module accumulates sections and emits a binary on Build. The function
// index space puts imports first, then added functions.
type Module struct {
	types    []funcType
	imports  []importEntry
	globals  []globalEntry
	exports  []exportEntry
	code     []codeEntry
	data     []dataEntry
	memPages uint32
	hasMem   bool
}

func NewModule() *Module {
	return &Module{}
}

// AddType registers a function type and returns its index.
func (m *Module) AddType(params, results []byte) uint32 {
	m.types = append(m.types, funcType{params: params, results: results})
	return uint32(len(m.types) - 1)
}

// ImportFunc imports module.name with the given type. Imports must be added
// before AddFunc so the index space stays coherent.
func (m *Module) ImportFunc(module, name string, typeIdx uint32) uint32 {
	m.imports = append(m.imports, importEntry{module: module, name: name, typeIdx: typeIdx})
	return uint32(len(m.imports) - 1)
}

// AddFunc adds a function with the given type and body. The body must end
// with the end opcode. Returns the function index.
func (m *Module) AddFunc(typeIdx uint32, body []byte) uint32 {
	m.code = append(m.code, codeEntry{typeIdx: typeIdx, body: body})
	return uint32(len(m.imports) + len(m.code) - 1)
}

// AddMemory declares a memory with min pages and no max.
func (m *Module) AddMemory(minPages uint32) {
	m.memPages = minPages
	m.hasMem = true
}

// AddGlobal adds an i32 global with a constant initializer and returns its
// index.
func (m *Module) AddGlobal(mutable bool, init int32) uint32 {
	m.globals = append(m.globals, globalEntry{valType: I32, mutable: mutable, init: init})
	return uint32(len(m.globals) - 1)
}

// ExportFunc exports a function index under name.
func (m *Module) ExportFunc(name string, funcIdx uint32) {
	m.exports = append(m.exports, exportEntry{name: name, kind: kindFunc, idx: funcIdx})
}

// ExportMemory exports memory 0 under name.
func (m *Module) ExportMemory(name string) {
	m.exports = append(m.exports, exportEntry{name: name, kind: kindMemory, idx: 0})
}

// AddData adds an active data segment at a constant offset in memory 0.
func (m *Module) AddData(offset int32, data []byte) {
	m.data = append(m.data, dataEntry{offset: offset, data: data})
}

func (m *Module) section(out *bytes.Buffer, id byte, content []byte) {
	if len(content) == 0 {
		return
	}
	out.WriteByte(id)
	writeULEB(out, uint32(len(content)))
	out.Write(content)
}

// Build emits the module binary.
func (m *Module) Build() []byte {
	var out bytes.Buffer
	out.Write([]byte{0x00, 0x61, 0x73, 0x6D}) // magic
	out.Write([]byte{0x01, 0x00, 0x00, 0x00}) // version

	if len(m.types) > 0 {
		var sec bytes.Buffer
		writeULEB(&sec, uint32(len(m.types)))
		for _, t := range m.types {
			sec.WriteByte(0x60)
			writeULEB(&sec, uint32(len(t.params)))
			sec.Write(t.params)
			writeULEB(&sec, uint32(len(t.results)))
			sec.Write(t.results)
		}
		m.section(&out, secType, sec.Bytes())
	}

	if len(m.imports) > 0 {
		var sec bytes.Buffer
		writeULEB(&sec, uint32(len(m.imports)))
		for _, imp := range m.imports {
			writeName(&sec, imp.module)
			writeName(&sec, imp.name)
			sec.WriteByte(kindFunc)
			writeULEB(&sec, imp.typeIdx)
		}
		m.section(&out, secImport, sec.Bytes())
	}

	if len(m.code) > 0 {
		var sec bytes.Buffer
		writeULEB(&sec, uint32(len(m.code)))
		for _, c := range m.code {
			writeULEB(&sec, c.typeIdx)
		}
		m.section(&out, secFunc, sec.Bytes())
	}

	if m.hasMem {
		var sec bytes.Buffer
		writeULEB(&sec, 1)
		sec.WriteByte(0x00) // limits: min only
		writeULEB(&sec, m.memPages)
		m.section(&out, secMemory, sec.Bytes())
	}

	if len(m.globals) > 0 {
		var sec bytes.Buffer
		writeULEB(&sec, uint32(len(m.globals)))
		for _, g := range m.globals {
			sec.WriteByte(g.valType)
			if g.mutable {
				sec.WriteByte(0x01)
			} else {
				sec.WriteByte(0x00)
			}
			sec.WriteByte(opI32Const)
			writeSLEB(&sec, g.init)
			sec.WriteByte(opEnd)
		}
		m.section(&out, secGlobal, sec.Bytes())
	}

	if len(m.exports) > 0 {
		var sec bytes.Buffer
		writeULEB(&sec, uint32(len(m.exports)))
		for _, e := range m.exports {
			writeName(&sec, e.name)
			sec.WriteByte(e.kind)
			writeULEB(&sec, e.idx)
		}
		m.section(&out, secExport, sec.Bytes())
	}

	if len(m.code) > 0 {
		var sec bytes.Buffer
		writeULEB(&sec, uint32(len(m.code)))
		for _, c := range m.code {
			var entry bytes.Buffer
			writeULEB(&entry, 0) // no locals
			entry.Write(c.body)
			writeULEB(&sec, uint32(entry.Len()))
			sec.Write(entry.Bytes())
		}
		m.section(&out, secCode, sec.Bytes())
	}

	if len(m.data) > 0 {
		var sec bytes.Buffer
		writeULEB(&sec, uint32(len(m.data)))
		for _, d := range m.data {
			sec.WriteByte(0x00) // active, memory 0
			sec.WriteByte(opI32Const)
			writeSLEB(&sec, d.offset)
			sec.WriteByte(opEnd)
			writeULEB(&sec, uint32(len(d.data)))
			sec.Write(d.data)
		}
		m.section(&out, secData, sec.Bytes())
	}

	return out.Bytes()
}
