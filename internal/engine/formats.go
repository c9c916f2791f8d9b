package engine

// FallbackInputFormats is used when the converter cannot list its input
// formats. It mirrors pandoc 3.7.
var FallbackInputFormats = []string{
	"biblatex", "bibtex", "bits", "commonmark", "commonmark_x", "creole",
	"csljson", "csv", "djot", "docbook", "docx", "dokuwiki", "endnotexml",
	"epub", "fb2", "gfm", "haddock", "html", "ipynb", "jats", "jira", "json",
	"latex", "man", "markdown", "markdown_github", "markdown_mmd",
	"markdown_phpextra", "markdown_strict", "mdoc", "mediawiki", "muse",
	"native", "odt", "opml", "org", "pod", "ris", "rst", "rtf", "t2t",
	"textile", "tikiwiki", "tsv", "twiki", "typst", "vimwiki",
}

// FallbackOutputFormats is used when the converter cannot list its output
// formats. It mirrors pandoc 3.7.
var FallbackOutputFormats = []string{
	"ansi", "asciidoc", "asciidoc_legacy", "asciidoctor", "beamer", "biblatex",
	"bibtex", "chunkedhtml", "commonmark", "commonmark_x", "context", "csljson",
	"djot", "docbook", "docbook4", "docbook5", "docx", "dokuwiki", "dzslides",
	"epub", "epub2", "epub3", "fb2", "gfm", "haddock", "html", "html4", "html5",
	"icml", "ipynb", "jats", "jats_archiving", "jats_articleauthoring",
	"jats_publishing", "jira", "json", "latex", "man", "markdown",
	"markdown_github", "markdown_mmd", "markdown_phpextra", "markdown_strict",
	"markua", "mediawiki", "ms", "muse", "native", "odt", "opendocument", "opml",
	"org", "pdf", "plain", "pptx", "revealjs", "rst", "rtf", "s5", "slideous",
	"slidy", "tei", "texinfo", "textile", "typst", "xwiki", "zimwiki",
}

// TypesetterInputFormats lists what the typesetter compiles
var TypesetterInputFormats = []string{"typ"}

// TypesetterOutputFormats lists what the typesetter can export
var TypesetterOutputFormats = []string{"pdf", "png", "svg", "html"}
