package storage

import "testing"

func TestPublicURLRoundTrip(t *testing.T) {
	object := "products/1_abc_mesa nino.jpg"
	link := PublicURL("https://storage.googleapis.com/", "santis.appspot.com", object)
	if link != "https://storage.googleapis.com/santis.appspot.com/products/1_abc_mesa%20nino.jpg" {
		t.Fatalf("unexpected link %s", link)
	}
	got, ok := ObjectFromURL("https://storage.googleapis.com", "santis.appspot.com", link)
	if !ok || got != object {
		t.Fatalf("expected %s, got %s (%v)", object, got, ok)
	}
}

func TestObjectFromFirebaseURL(t *testing.T) {
	link := "https://firebasestorage.googleapis.com/v0/b/santis.appspot.com/o/products%2F1_abc_mesa.jpg?alt=media&token=x"
	got, ok := ObjectFromURL("https://storage.googleapis.com", "santis.appspot.com", link)
	if !ok || got != "products/1_abc_mesa.jpg" {
		t.Fatalf("unexpected object %q (%v)", got, ok)
	}
}

func TestObjectFromURLRejectsForeignLinks(t *testing.T) {
	cases := []string{
		"",
		"https://example.com/santis.appspot.com/products/a.jpg",
		"https://storage.googleapis.com/other-bucket/products/a.jpg",
		"https://firebasestorage.googleapis.com/v0/b/other/o/products%2Fa.jpg",
	}
	for _, link := range cases {
		if _, ok := ObjectFromURL("https://storage.googleapis.com", "santis.appspot.com", link); ok {
			t.Fatalf("expected %q to be rejected", link)
		}
	}
}
