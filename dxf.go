package audioworld

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const dxfFaceCorners = 4

// LoadFacesFromDXFFile reads the 3DFACE entities of a simplified DXF file.
func LoadFacesFromDXFFile(fileName string) ([][]Point3, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("could not open DXF file %s: %w", fileName, err)
	}
	defer file.Close()

	faces, err := LoadFacesFromDXF(file)
	if err != nil {
		return nil, fmt.Errorf("error parsing DXF file %s: %w", fileName, err)
	}
	return faces, nil
}

// LoadFacesFromDXF returns one four-corner face per 3DFACE entity. Each
// entity is three header lines followed by X, Y, Z value lines, each value
// preceded by its group code line.
func LoadFacesFromDXF(reader io.Reader) ([][]Point3, error) {
	scanner := bufio.NewScanner(reader)

	readFloatLine := func() (float64, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, err
			}
			return 0, io.ErrUnexpectedEOF
		}
		val, err := strconv.ParseFloat(strings.TrimSpace(scanner.Text()), 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse float value '%s': %w", scanner.Text(), err)
		}
		return val, nil
	}

	var faces [][]Point3
	for scanner.Scan() {
		if !strings.HasPrefix(strings.TrimSpace(scanner.Text()), "3DFACE") {
			continue
		}

		for i := 0; i < 3; i++ {
			if !scanner.Scan() {
				return nil, fmt.Errorf("unexpected end of file while parsing 3DFACE header")
			}
		}

		face := make([]Point3, 0, dxfFaceCorners)
		for c := 0; c < dxfFaceCorners; c++ {
			x, err := readFloatLine()
			if err != nil {
				return nil, fmt.Errorf("error reading X coordinate for vertex %d: %w", c, err)
			}
			scanner.Scan()

			y, err := readFloatLine()
			if err != nil {
				return nil, fmt.Errorf("error reading Y coordinate for vertex %d: %w", c, err)
			}
			scanner.Scan()

			z, err := readFloatLine()
			if err != nil {
				return nil, fmt.Errorf("error reading Z coordinate for vertex %d: %w", c, err)
			}
			scanner.Scan()

			face = append(face, NewPoint3(x, y, z))
		}
		faces = append(faces, face)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from DXF source: %w", err)
	}
	return faces, nil
}
