// Package describe produces the short content descriptions sent to the
// classifier next to each file name.
//
// exiftool is preferred when installed because it understands office
// documents, PDFs, audio and video. Without it the package falls back to MIME
// sniffing plus EXIF camera data for JPEG and TIFF images. Every failure
// degrades to a shorter (possibly empty) description; callers never see an
// error.
package describe
