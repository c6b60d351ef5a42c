package mcpserver

import "fmt"

// LibraryURI names the resource that describes the open library.
const LibraryURI = "shelf://library"

// bookFieldGuide explains the fields returned by list_books and get_book.
const bookFieldGuide = `## Book fields

- **id**: Calibre's book id, stable for the lifetime of the library.
- **title**: display title.
- **title_sort**: Calibre's sort form of the title ("Hobbit, The"); falls
  back to the title when the library has none.
- **authors**: author names in the order Calibre linked them.
- **authors_display**: authors joined with " & ".
- **author_sort**: Calibre's author sort string; falls back to the authors
  joined with ", ".
- **series**: ` + "`{name, position}`" + ` when the book is in a series. The position
  is the series index as a decimal ("2", "2.5").
- **cover_path**: absolute path of cover.jpg when the library says the book
  has a cover. The file may still be missing.
- **file_path**: absolute path of the first stored format.
- **comments**: the book's description as stored, usually HTML. Use
  get_comments for a plain text rendering.

## Rules

1. The library is **read-only**. No tool changes metadata.db.
2. Sorting: ` + "`natural`" + ` is database order, ` + "`title`" + ` uses title_sort,
   ` + "`author`" + ` uses author_sort.
3. ` + "`query`" + ` is a case-insensitive substring match on title or any author.
`

// libraryDocument renders the shelf://library resource.
func libraryDocument(root string, total int) string {
	return fmt.Sprintf("# Calibre library\n\n- **root**: %s\n- **books**: %d\n\n%s", root, total, bookFieldGuide)
}
