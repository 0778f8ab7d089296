package model

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// Bytes serialized to JSON as an array of numbers
type ByteArray []byte

func (self ByteArray) MarshalJSON() ([]byte, error) {
	if self == nil {
		return []byte("null"), nil
	}

	buf := bytes.NewBuffer(make([]byte, 0, 4*len(self)+2))
	buf.WriteByte('[')
	for i, b := range self {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Itoa(int(b)))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Accepts an array of numbers or a base64 string
func (self *ByteArray) UnmarshalJSON(data []byte) (err error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*self = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		err = json.Unmarshal(data, &s)
		if err != nil {
			return
		}
		*self, err = base64.StdEncoding.DecodeString(s)
		return
	}

	var numbers []int
	err = json.Unmarshal(data, &numbers)
	if err != nil {
		return
	}

	out := make(ByteArray, len(numbers))
	for i, n := range numbers {
		if n < 0 || n > 255 {
			return fmt.Errorf("byte out of range at %d: %d", i, n)
		}
		out[i] = byte(n)
	}
	*self = out
	return nil
}
