package mcpserver

// ArchiveGuide describes the archive to LLM consumers before they search
// it or contribute comments and messages.
const ArchiveGuide = `# Albumen Archive Guide

The archive is a fixed catalog of scanned family photographs. Each image has
machine-derived metadata and an open comment thread.

## Catalog entries

` + "```" + `json
{
  "filename": "0001.jpg",
  "labels": ["Cat", "Sofa"],
  "text": ["Merry Christmas"],
  "landmarks": [],
  "objects": {"cat": {}}
}
` + "```" + `

- ` + "`" + `labels` + "`" + `: scene and content labels.
- ` + "`" + `text` + "`" + `: text read off the photo (captions, signs, cards).
- ` + "`" + `landmarks` + "`" + `: recognised places.
- ` + "`" + `objects` + "`" + `: detected objects, keyed by name.

Search matches a case-insensitive substring against all of these, and
against the author and text of every comment on the image.

## Filenames

Scans are numbered (` + "`" + `0001.jpg` + "`" + `) or keep their camera
name (` + "`" + `IMG_0001.jpeg` + "`" + `). Mentioning a filename in a board
message links the message to that image, so always write the filename
exactly as the catalog lists it.

## Comments and messages

1. **Author is required.** Use the name family members know you by.
2. **Text is required**, plain text, at most 5000 characters.
3. Comments are attached to exactly one image and shown newest first.
4. Comments and messages cannot be edited or deleted once posted.

## Sharing

A share link names up to 10 images:
` + "`" + `https://archive.example/?share=0001.jpg,0002.jpg` + "`" + `.
Unknown filenames in a link are ignored.
`
