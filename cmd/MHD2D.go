/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/notargets/gomhd/InputParameters"
	"github.com/notargets/gomhd/MHD2D"

	"github.com/spf13/cobra"
)

type ModelMHD2D struct {
	ICFile string
	Graph  bool
	Delay  time.Duration
}

// MHD2DCmd represents the MHD2D command
var MHD2DCmd = &cobra.Command{
	Use:   "MHD2D",
	Short: "Two dimensional reduced resistive MHD solver on a structured mesh",
	Long:  `Two dimensional reduced resistive MHD solver on a structured mesh`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
		)
		fmt.Println("MHD2D called")
		mmhd := &ModelMHD2D{}
		if mmhd.ICFile, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
			panic(err)
		}
		mmhd.Graph, _ = cmd.Flags().GetBool("graph")
		dr, _ := cmd.Flags().GetInt("delay")
		mmhd.Delay = time.Duration(dr) * time.Millisecond
		ip := processInput(mmhd)
		RunMHD2D(mmhd, ip)
	},
}

func processInput(mmhd *ModelMHD2D) (ip *InputParameters.MHDParameters) {
	var (
		err error
	)
	if len(mmhd.ICFile) == 0 {
		err := fmt.Errorf("must supply an input parameters file (-I, --inputConditionsFile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		exampleFile := `
########################################
Title: "Tearing Mode Test"
Nx: 32
Ny: 32
XMax: 3.14159265358979
YMax: 3.14159265358979
Viscosity: 0.001    # 1/Re
Resistivity: 0.001  # 1/Lundquist
Dt: 0.05
FinalTime: 10
ImplicitSolver: true
UseICC: false
InitAmp: 0.1
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		os.Exit(1)
	}
	var data []byte
	if data, err = os.ReadFile(mmhd.ICFile); err != nil {
		panic(err)
	}
	ip = &InputParameters.MHDParameters{}
	if err = ip.Parse(data); err != nil {
		panic(err)
	}
	return
}

func init() {
	rootCmd.AddCommand(MHD2DCmd)
	MHD2DCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- Dt\n\t- Resistivity")
	MHD2DCmd.Flags().BoolP("graph", "g", false, "display a graph while computing solution")
	MHD2DCmd.Flags().IntP("delay", "d", 0, "milliseconds of delay for plotting")
}

func RunMHD2D(mmhd *ModelMHD2D, ip *InputParameters.MHDParameters) {
	ip.Print()
	c, err := MHD2D.NewMHD(ip)
	if err != nil {
		panic(err)
	}
	if err = c.Run(mmhd.Graph, mmhd.Delay); err != nil {
		panic(err)
	}
}
