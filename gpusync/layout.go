package gpusync

import "fmt"

// UniformType is the WGSL type of a uniform field.
type UniformType uint8

const (
	F32 UniformType = iota
	Vec2
	Vec4
	Mat4
)

// Size returns the byte size of the type.
func (t UniformType) Size() int {
	switch t {
	case F32:
		return 4
	case Vec2:
		return 8
	case Vec4:
		return 16
	case Mat4:
		return 64
	}
	return 0
}

// Align returns the WGSL uniform address space alignment of the type.
func (t UniformType) Align() int {
	switch t {
	case F32:
		return 4
	case Vec2:
		return 8
	default:
		return 16
	}
}

func (t UniformType) String() string {
	switch t {
	case F32:
		return "f32"
	case Vec2:
		return "vec2<f32>"
	case Vec4:
		return "vec4<f32>"
	case Mat4:
		return "mat4x4<f32>"
	}
	return fmt.Sprintf("UniformType(%d)", uint8(t))
}

// Field declares one uniform.
type Field struct {
	Name string
	Type UniformType
}

// FieldLayout is a Field with its resolved byte offset.
type FieldLayout struct {
	Field
	Offset int
}

// PassLayout is the binding contract between a material and a render pass:
// one uniform block laid out in declaration order, followed by a fixed
// number of texture slots.
type PassLayout struct {
	name     string
	fields   []FieldLayout
	index    map[string]int
	size     int
	textures int
}

// NewPassLayout lays out fields with WGSL uniform alignment. The block size
// is rounded up to 16 bytes.
func NewPassLayout(name string, textureSlots int, fields ...Field) *PassLayout {
	l := &PassLayout{
		name:     name,
		index:    make(map[string]int, len(fields)),
		textures: max(textureSlots, 0),
	}
	off := 0
	for _, f := range fields {
		a := f.Type.Align()
		off = (off + a - 1) / a * a
		l.index[f.Name] = len(l.fields)
		l.fields = append(l.fields, FieldLayout{Field: f, Offset: off})
		off += f.Type.Size()
	}
	l.size = (off + 15) / 16 * 16
	return l
}

// Name returns the pass name.
func (l *PassLayout) Name() string { return l.name }

// Size returns the uniform block size in bytes.
func (l *PassLayout) Size() int { return l.size }

// TextureSlots returns the number of texture bindings.
func (l *PassLayout) TextureSlots() int { return l.textures }

// Fields returns the laid out fields in declaration order.
func (l *PassLayout) Fields() []FieldLayout {
	return append([]FieldLayout(nil), l.fields...)
}

// Lookup returns the layout of a named field.
func (l *PassLayout) Lookup(name string) (FieldLayout, bool) {
	i, ok := l.index[name]
	if !ok {
		return FieldLayout{}, false
	}
	return l.fields[i], true
}
