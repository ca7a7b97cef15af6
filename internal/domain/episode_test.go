package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNewEpisode_TruncatesToShorter(t *testing.T) {
	keys := []string{"No.", "Title", "Original air date"}

	e := NewEpisode(keys, []string{"1", "Pilot"})
	if e.Len() != 2 {
		t.Fatalf("期望 2 列，实际 %d", e.Len())
	}
	if !reflect.DeepEqual(e.Keys(), []string{"No.", "Title"}) {
		t.Fatalf("keys 不符合预期：%v", e.Keys())
	}

	e2 := NewEpisode(keys, []string{"1", "Pilot", "May 6, 2019", "extra"})
	if !reflect.DeepEqual(e2.Keys(), keys) {
		t.Fatalf("keys 不符合预期：%v", e2.Keys())
	}
	if !reflect.DeepEqual(e2.Values(), []string{"1", "Pilot", "May 6, 2019"}) {
		t.Fatalf("values 不符合预期：%v", e2.Values())
	}
}

func TestEpisode_Accessors(t *testing.T) {
	e := NewEpisode(
		[]string{"No. overall", "No. in season", "Title", "Directed by"},
		[]string{"7", "2", "Please Remain Calm", "Johan Renck"},
	)
	if e.Number() != "7" {
		t.Fatalf("期望 Number=7，实际=%q", e.Number())
	}
	if e.Title() != "Please Remain Calm" {
		t.Fatalf("期望 Title，实际=%q", e.Title())
	}
	if v, ok := e.Get("Directed by"); !ok || v != "Johan Renck" {
		t.Fatalf("Get 不符合预期：%q %v", v, ok)
	}
	if _, ok := e.Get("Written by"); ok {
		t.Fatalf("不存在的列不应命中")
	}
}

func TestEpisode_NumberIgnoresNoPrefixedColumns(t *testing.T) {
	e := NewEpisode([]string{"Title", "Notes"}, []string{"Pilot", "Unaired"})
	if got := e.Number(); got != "" {
		t.Fatalf("Notes 列不应被当作编号，实际=%q", got)
	}

	e = NewEpisode([]string{"Nominee", "No. in season", "Title"}, []string{"x", "3", "Pilot"})
	if got := e.Number(); got != "3" {
		t.Fatalf("期望 Number=3，实际=%q", got)
	}
}

func TestEpisode_JSONKeepsHeaderOrder(t *testing.T) {
	e := NewEpisode(
		[]string{"Title", "No.", "Original air date"},
		[]string{"1:23:45", "1", "May 6, 2019"},
	)
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	want := `{"Title":"1:23:45","No.":"1","Original air date":"May 6, 2019"}`
	if string(b) != want {
		t.Fatalf("JSON 不符合预期：\n got=%s\nwant=%s", b, want)
	}
}

func TestEpisode_RoundTrip(t *testing.T) {
	in := []Episode{
		NewEpisode([]string{"No.", "Title", "U.S. viewers"}, []string{"1", "\"Quoted\" <b>", "1.2"}),
		NewEpisode([]string{"No.", "Title", "U.S. viewers"}, []string{"2", "Ünïcode", "N/A"}),
	}
	b, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		t.Fatalf("json.MarshalIndent 失败：%v", err)
	}

	var out []Episode
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("json.Unmarshal 失败：%v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round-trip 不一致：\n in=%+v\nout=%+v", in, out)
	}
}

func TestEpisode_UnmarshalRejectsNonObject(t *testing.T) {
	var e Episode
	if err := json.Unmarshal([]byte(`["a"]`), &e); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if err := json.Unmarshal([]byte(`{"a":1}`), &e); err == nil {
		t.Fatalf("非字符串值应报错")
	}
}
