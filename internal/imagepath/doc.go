// Package imagepath maps between original image paths, variant filenames and
// public URLs. All functions are pure and perform no I/O.
package imagepath
