package fsx

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomicReplace_SuccessAndNoTempLeft(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	if err := WriteFileAtomicReplace(dir, "episodes.json", []byte("[]")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := WriteFileAtomicReplace(dir, "episodes.json", []byte("[1]")); err != nil {
		t.Fatalf("覆盖写入不期望错误：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "episodes.json"))
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != "[1]" {
		t.Fatalf("内容不一致：%q", string(b))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	if len(entries) != 1 {
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".episodes.json.tmp-") {
				t.Fatalf("临时文件未清理：%q", e.Name())
			}
		}
		t.Fatalf("期望目录内只有 1 个文件，实际 %d", len(entries))
	}
}

func TestWriteFileAtomicReplace_RenameFail_CleanupTemp(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return os.ErrPermission
	}
	defer func() { renameFunc = old }()

	err := WriteFileAtomicReplace(dir, "a.json", []byte("{}"))
	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("期望 ErrPermission，实际：%v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("失败后不应留下任何文件：%v", entries)
	}
}

func TestWriteFileAtomicReplace_TargetIsDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "a.json"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	err := WriteFileAtomicReplace(dir, "a.json", []byte("{}"))
	if !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
}

func TestEnsureDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "x", "y")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("已存在目录不应报错：%v", err)
	}

	file := filepath.Join(root, "f")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	if err := EnsureDir(file); !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%v", err)
	}
}

func TestRemoveTree(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "show")
	if err := os.MkdirAll(filepath.Join(dir, "s1", "deep"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "s1", "deep", "stale.json"), []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	if err := RemoveTree(dir); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("目录应被整棵删除，Stat err=%v", err)
	}
	if err := RemoveTree(dir); err != nil {
		t.Fatalf("不存在的目录不应报错：%v", err)
	}
}
