package runcshim

import "testing"

func TestOverlayProbe_Find(t *testing.T) {
	fs := newFakeFileOps()
	fs.files["/proc/self/mountinfo"] = []byte(
		"1 2 0:1 / / rw - ext4 /dev/sda1 rw\n" +
			"3 4 0:2 / /run/containerd/io.containerd.runtime.v2.task/default/abc123/rootfs rw - overlay overlay rw,lowerdir=/a:/b,upperdir=/var/lib/containerd/abc123/fs,workdir=/var/lib/containerd/abc123/work\n",
	)
	p := NewOverlayProbe(fs)
	got := p.Find("default", "abc123")
	want := "/var/lib/containerd/abc123/fs"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestOverlayProbe_Find_NoMatch(t *testing.T) {
	fs := newFakeFileOps()
	fs.files["/proc/self/mountinfo"] = []byte("1 2 0:1 / / rw - ext4 /dev/sda1 rw\n")
	p := NewOverlayProbe(fs)
	if got := p.Find("default", "nope"); got != "" {
		t.Fatalf("expected no match, got %q", got)
	}
}

func TestOverlayProbe_Find_MissingMountTable(t *testing.T) {
	fs := newFakeFileOps()
	p := NewOverlayProbe(fs)
	if got := p.Find("default", "abc123"); got != "" {
		t.Fatalf("expected empty result when mount table unreadable, got %q", got)
	}
}

func TestExtractUpperdir_StopsAtCloseParen(t *testing.T) {
	got := extractUpperdir("opts: (rw,upperdir=/a/b/fs,workdir=/a/b/work)")
	if got != "/a/b/fs" {
		t.Fatalf("got %q", got)
	}
}
