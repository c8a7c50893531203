package weave

import (
	"encoding"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// fixedSize returns the packed byte width of a primitive kind, or 0 when the
// kind has no fixed layout. Platform-sized integers always use 8 bytes.
func fixedSize(k reflect.Kind) int {
	switch k {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64, reflect.Uintptr,
		reflect.Float64, reflect.Complex64:
		return 8
	case reflect.Complex128:
		return 16
	default:
		return 0
	}
}

// formatPrimitive renders a primitive value as text.
func formatPrimitive(v reflect.Value) (string, error) {
	if isTextPrimitive(v.Type()) {
		m, ok := textMarshaler(v)
		if !ok {
			return "", fmt.Errorf("%s does not implement encoding.TextMarshaler", v.Type())
		}
		b, err := m.MarshalText()
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	switch v.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64), nil
	case reflect.Complex64:
		return strconv.FormatComplex(v.Complex(), 'g', -1, 64), nil
	case reflect.Complex128:
		return strconv.FormatComplex(v.Complex(), 'g', -1, 128), nil
	case reflect.String:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%s is not a primitive", v.Type())
	}
}

// textMarshaler finds a TextMarshaler on v or its address.
func textMarshaler(v reflect.Value) (encoding.TextMarshaler, bool) {
	if v.Type().Implements(textMarshalerType) {
		m, ok := v.Interface().(encoding.TextMarshaler)
		return m, ok
	}
	if !v.CanAddr() {
		tmp := reflect.New(v.Type())
		tmp.Elem().Set(v)
		v = tmp.Elem()
	}
	m, ok := v.Addr().Interface().(encoding.TextMarshaler)
	return m, ok
}

// parsePrimitive parses text into a new value of type t.
func parsePrimitive(s string, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()

	if isTextPrimitive(t) {
		u, ok := out.Addr().Interface().(encoding.TextUnmarshaler)
		if !ok {
			return reflect.Value{}, fmt.Errorf("%s does not implement encoding.TextUnmarshaler", t)
		}
		if err := u.UnmarshalText([]byte(s)); err != nil {
			return reflect.Value{}, err
		}
		return out, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(f)
	case reflect.Complex64, reflect.Complex128:
		c, err := strconv.ParseComplex(s, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetComplex(c)
	case reflect.String:
		out.SetString(s)
	default:
		return reflect.Value{}, fmt.Errorf("%s is not a primitive", t)
	}
	return out, nil
}

// putPrimitive writes v into buf using its fixed little-endian layout.
func putPrimitive(buf []byte, v reflect.Value) {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			buf[0] = 1
		} else {
			buf[0] = 0
		}
	case reflect.Int8:
		buf[0] = byte(v.Int())
	case reflect.Uint8:
		buf[0] = byte(v.Uint())
	case reflect.Int16:
		binary.LittleEndian.PutUint16(buf, uint16(v.Int()))
	case reflect.Uint16:
		binary.LittleEndian.PutUint16(buf, uint16(v.Uint()))
	case reflect.Int32:
		binary.LittleEndian.PutUint32(buf, uint32(v.Int()))
	case reflect.Uint32:
		binary.LittleEndian.PutUint32(buf, uint32(v.Uint()))
	case reflect.Float32:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v.Float())))
	case reflect.Int, reflect.Int64:
		binary.LittleEndian.PutUint64(buf, uint64(v.Int()))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		binary.LittleEndian.PutUint64(buf, v.Uint())
	case reflect.Float64:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v.Float()))
	case reflect.Complex64:
		c := v.Complex()
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(real(c))))
		binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(imag(c))))
	case reflect.Complex128:
		c := v.Complex()
		binary.LittleEndian.PutUint64(buf, math.Float64bits(real(c)))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(imag(c)))
	}
}

// getPrimitive reads one fixed-layout value of type t from buf.
func getPrimitive(buf []byte, t reflect.Type) reflect.Value {
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		out.SetBool(buf[0] != 0)
	case reflect.Int8:
		out.SetInt(int64(int8(buf[0])))
	case reflect.Uint8:
		out.SetUint(uint64(buf[0]))
	case reflect.Int16:
		out.SetInt(int64(int16(binary.LittleEndian.Uint16(buf))))
	case reflect.Uint16:
		out.SetUint(uint64(binary.LittleEndian.Uint16(buf)))
	case reflect.Int32:
		out.SetInt(int64(int32(binary.LittleEndian.Uint32(buf))))
	case reflect.Uint32:
		out.SetUint(uint64(binary.LittleEndian.Uint32(buf)))
	case reflect.Float32:
		out.SetFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(buf))))
	case reflect.Int, reflect.Int64:
		out.SetInt(int64(binary.LittleEndian.Uint64(buf)))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		out.SetUint(binary.LittleEndian.Uint64(buf))
	case reflect.Float64:
		out.SetFloat(math.Float64frombits(binary.LittleEndian.Uint64(buf)))
	case reflect.Complex64:
		re := math.Float32frombits(binary.LittleEndian.Uint32(buf))
		im := math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))
		out.SetComplex(complex(float64(re), float64(im)))
	case reflect.Complex128:
		re := math.Float64frombits(binary.LittleEndian.Uint64(buf))
		im := math.Float64frombits(binary.LittleEndian.Uint64(buf[8:]))
		out.SetComplex(complex(re, im))
	}
	return out
}

// packPrimitives encodes homogeneous primitive values as base64 of their
// concatenated little-endian layouts.
func packPrimitives(values []reflect.Value, elem reflect.Type) string {
	size := fixedSize(elem.Kind())
	raw := make([]byte, size*len(values))
	for i, v := range values {
		putPrimitive(raw[i*size:], v)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// unpackPrimitives decodes a packed value into element values of type elem.
func unpackPrimitives(s string, elem reflect.Type) ([]reflect.Value, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	size := fixedSize(elem.Kind())
	if size == 0 {
		return nil, fmt.Errorf("%s has no packed layout", elem)
	}
	if len(raw)%size != 0 {
		return nil, fmt.Errorf("packed length %d is not a multiple of %d", len(raw), size)
	}
	out := make([]reflect.Value, len(raw)/size)
	for i := range out {
		out[i] = getPrimitive(raw[i*size:], elem)
	}
	return out, nil
}
