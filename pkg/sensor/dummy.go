package sensor

import "fmt"

// Dummy stands in for any sensor when running without hardware.  It returns
// a fixed reading.
type Dummy struct {
	Name    string
	Reading int
}

func (d *Dummy) DistanceCM() (int, error) {
	fmt.Printf("Dummy %s: DistanceCM=%d\n", d.Name, d.Reading)
	return d.Reading, nil
}

func (d *Dummy) LightLevel() (int, error) {
	fmt.Printf("Dummy %s: LightLevel=%d\n", d.Name, d.Reading)
	return d.Reading, nil
}
