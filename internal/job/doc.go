// Package job defines the queued work units: a tagged union of Generate and
// GenerateUpload jobs plus the GenerateParams passed through to the engine.
//
// Jobs encode to the externally tagged JSON form used by the queue file and
// by export/import, for example {"Generate":{"params":{...},"dest":"out.mp4"}}.
// Absent optional fields are omitted rather than written as null so a decode
// followed by an encode reproduces the input.
package job
