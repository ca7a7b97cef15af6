package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Field 是 Episode 的一列：表头文本 -> 单元格文本。
type Field struct {
	Key   string
	Value string
}

// Episode 是一行剧集记录（有序映射）。
//
// 约束：
// - 列集合来自所在表格的表头行，不同表格可以不同（不要为“固定字段”牺牲数据）
// - 同一表格内所有 Episode 的 key 顺序与表头顺序一致
// - JSON 输出按插入顺序写 key（encoding/json 对 map 会排序，因此不能用 map）
type Episode struct {
	fields []Field
}

// NewEpisode 按位置把 keys 与 values 配对；长度不一致时截断到较短者。
func NewEpisode(keys, values []string) Episode {
	n := len(keys)
	if len(values) < n {
		n = len(values)
	}
	fields := make([]Field, 0, n)
	for i := 0; i < n; i++ {
		fields = append(fields, Field{Key: keys[i], Value: values[i]})
	}
	return Episode{fields: fields}
}

func (e Episode) Len() int { return len(e.fields) }

// Fields 返回副本，调用方修改不会影响 Episode。
func (e Episode) Fields() []Field {
	return append([]Field(nil), e.fields...)
}

func (e Episode) Keys() []string {
	out := make([]string, 0, len(e.fields))
	for _, f := range e.fields {
		out = append(out, f.Key)
	}
	return out
}

func (e Episode) Values() []string {
	out := make([]string, 0, len(e.fields))
	for _, f := range e.fields {
		out = append(out, f.Value)
	}
	return out
}

// Get 返回第一个 key 完全相等的值。
func (e Episode) Get(key string) (string, bool) {
	for _, f := range e.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Number 返回剧集编号：优先 "No."，否则取第一个以 "No. " 开头的列
// （维基常见 "No. overall" / "No. in season"）。"Notes"、"Nominee" 等列不算编号。
func (e Episode) Number() string {
	if v, ok := e.Get("No."); ok {
		return v
	}
	for _, f := range e.fields {
		if strings.HasPrefix(f.Key, "No. ") {
			return f.Value
		}
	}
	return ""
}

// Title 返回 "Title" 列；部分表格使用 "Episode"/"Name" 作为标题列。
func (e Episode) Title() string {
	for _, k := range []string{"Title", "Episode", "Name"} {
		if v, ok := e.Get(k); ok {
			return v
		}
	}
	return ""
}

func (e Episode) String() string {
	return fmt.Sprintf("episode:%s, title:%s", e.Number(), e.Title())
}

func (e Episode) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range e.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 按文档顺序读取 key；只接受扁平的 string->string 对象。
func (e *Episode) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("episode 必须是 JSON 对象")
	}

	fields := make([]Field, 0, 8)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("episode key 类型错误：%T", tok)
		}
		var val string
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("episode 字段 %q：%w", key, err)
		}
		fields = append(fields, Field{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	e.fields = fields
	return nil
}
