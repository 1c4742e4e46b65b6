package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type MHDParameters struct {
	Title          string  `yaml:"Title"`
	Nx             int     `yaml:"Nx"`
	Ny             int     `yaml:"Ny"`
	XMax           float64 `yaml:"XMax"`
	YMax           float64 `yaml:"YMax"`
	Viscosity      float64 `yaml:"Viscosity"`   // 1/Re
	Resistivity    float64 `yaml:"Resistivity"` // 1/Lundquist
	Dt             float64 `yaml:"Dt"`
	FinalTime      float64 `yaml:"FinalTime"`
	ImplicitSolver bool    `yaml:"ImplicitSolver"`
	UseICC         bool    `yaml:"UseICC"` // incomplete Cholesky instead of Chebyshev
	InitAmp        float64 `yaml:"InitAmp"`
	EFieldAmp      float64 `yaml:"EFieldAmp"`
	LogFrequency   int     `yaml:"LogFrequency"`
}

func (ip *MHDParameters) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, ip); err != nil {
		return err
	}
	return ip.Validate()
}

func (ip *MHDParameters) Validate() error {
	if ip.Nx < 1 || ip.Ny < 1 {
		return fmt.Errorf("mesh dimensions must be positive: Nx = %d, Ny = %d", ip.Nx, ip.Ny)
	}
	if ip.XMax <= 0 || ip.YMax <= 0 {
		return fmt.Errorf("domain extents must be positive: XMax = %v, YMax = %v", ip.XMax, ip.YMax)
	}
	if ip.Dt <= 0 {
		return fmt.Errorf("timestep must be positive: Dt = %v", ip.Dt)
	}
	if ip.FinalTime < ip.Dt {
		return fmt.Errorf("FinalTime = %v is shorter than one timestep Dt = %v", ip.FinalTime, ip.Dt)
	}
	if ip.Viscosity < 0 || ip.Resistivity < 0 {
		return fmt.Errorf("dissipation must be non-negative: Viscosity = %v, Resistivity = %v",
			ip.Viscosity, ip.Resistivity)
	}
	return nil
}

func (ip *MHDParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%d x %d]\t\t= Mesh\n", ip.Nx, ip.Ny)
	fmt.Printf("[%v x %v]\t\t= Domain\n", ip.XMax, ip.YMax)
	fmt.Printf("%8.6f\t\t= Viscosity\n", ip.Viscosity)
	fmt.Printf("%8.6f\t\t= Resistivity\n", ip.Resistivity)
	fmt.Printf("%8.6f\t\t= Dt\n", ip.Dt)
	fmt.Printf("%8.4f\t\t= FinalTime\n", ip.FinalTime)
	fmt.Printf("[%v]\t\t\t= Implicit Solver\n", ip.ImplicitSolver)
	fmt.Printf("[%v]\t\t\t= Incomplete Cholesky\n", ip.UseICC)
}
