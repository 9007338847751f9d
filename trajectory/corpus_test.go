package trajectory

import (
	"errors"
	"strings"
	"testing"
)

func TestReadCorpus_SortsAndDerivesWordCount(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"entry_index,timestamp,text,context_tag",
		`7,,third message here,banter`,
		`2,2024-03-01T10:00:00Z,"hello, world",therapeutic`,
		`5,,middle one,`,
	}, "\n")

	entries, err := ReadCorpus(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCorpus: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries=%d, want 3", len(entries))
	}
	if entries[0].Index != 2 || entries[1].Index != 5 || entries[2].Index != 7 {
		t.Fatalf("order=%d,%d,%d", entries[0].Index, entries[1].Index, entries[2].Index)
	}
	if entries[0].WordCount != 2 {
		t.Fatalf("WordCount=%d, want 2", entries[0].WordCount)
	}
	if entries[0].Timestamp == nil {
		t.Fatalf("expected timestamp on entry 2")
	}
	if entries[0].ContextTag != ContextTherapeutic || entries[2].ContextTag != ContextBanter {
		t.Fatalf("tags=%q,%q", entries[0].ContextTag, entries[2].ContextTag)
	}
	if entries[1].ContextTag != ContextNone {
		t.Fatalf("untagged entry got %q", entries[1].ContextTag)
	}
}

func TestReadCorpus_DuplicateIdenticalCollapses(t *testing.T) {
	t.Parallel()

	in := "entry_index,text\n1,same text\n1,same text\n2,other\n"
	entries, err := ReadCorpus(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCorpus: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries=%d, want 2", len(entries))
	}
}

func TestReadCorpus_DuplicateConflictFails(t *testing.T) {
	t.Parallel()

	in := "entry_index,text\n1,first version\n1,second version\n"
	_, err := ReadCorpus(strings.NewReader(in))
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("err=%v, want LoadError", err)
	}
	if loadErr.Index != 1 {
		t.Fatalf("Index=%d, want 1", loadErr.Index)
	}
}

func TestReadCorpus_EmptyTextFails(t *testing.T) {
	t.Parallel()

	in := "entry_index,text\n1,   \n"
	_, err := ReadCorpus(strings.NewReader(in))
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("err=%v, want LoadError", err)
	}
}

func TestReadCorpus_MissingColumnsFail(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"timestamp,text\n,hi\n",
		"entry_index,body\n1,hi\n",
	} {
		if _, err := ReadCorpus(strings.NewReader(in)); err == nil {
			t.Fatalf("expected error for header %q", strings.SplitN(in, "\n", 2)[0])
		}
	}
}

func TestReadCorpus_BadContextTagFails(t *testing.T) {
	t.Parallel()

	in := "entry_index,text,context_tag\n1,hello there,casual\n"
	if _, err := ReadCorpus(strings.NewReader(in)); err == nil {
		t.Fatalf("expected error for unknown context tag")
	}
}
