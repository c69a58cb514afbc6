package model_test

import (
	"reflect"
	"testing"

	"github.com/raysh454/evscout/internal/model"
)

func TestFields_LastWriteWinsKeepsPosition(t *testing.T) {
	t.Parallel()
	var f model.Fields
	f.Set("Serial", "A")
	f.Set("Firmware", "1.0")
	f.Set("Serial", "B")

	if got, want := f.Keys(), []string{"Serial", "Firmware"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	if v, _ := f.Get("Serial"); v != "B" {
		t.Errorf("Serial = %q, want B", v)
	}
	if f.Len() != 2 {
		t.Errorf("Len = %d, want 2", f.Len())
	}
}

func TestFields_ZeroValueIsEmpty(t *testing.T) {
	t.Parallel()
	var f model.Fields
	if _, ok := f.Get("missing"); ok {
		t.Fatal("expected missing key on zero Fields")
	}
	if len(f.Keys()) != 0 {
		t.Fatalf("expected no keys, got %v", f.Keys())
	}
}

func TestHostInfo_PortsString(t *testing.T) {
	t.Parallel()
	h := &model.HostInfo{OpenPorts: []int{80, 443, 8080}}
	if got := h.PortsString(); got != "80,443,8080" {
		t.Errorf("PortsString = %q", got)
	}
	var nilHost *model.HostInfo
	if got := nilHost.PortsString(); got != "" {
		t.Errorf("nil PortsString = %q", got)
	}
}
